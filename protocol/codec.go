package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownMessage = errors.New("unknown message")

// Dictionary is the document the firmware returns through identify.
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// Response is a decoded response message.
type Response struct {
	Name   string
	Values map[string]interface{}
	format MessageFormat
}

// Uint returns an integer parameter, or 0 if it is missing.
func (r *Response) Uint(name string) uint32 {
	v, _ := r.Values[name].(int64)
	return uint32(v)
}

// Int returns a signed integer parameter, or 0 if it is missing.
func (r *Response) Int(name string) int32 {
	v, _ := r.Values[name].(int64)
	return int32(v)
}

// Bytes returns a byte string parameter.
func (r *Response) Bytes(name string) []byte {
	v, _ := r.Values[name].([]byte)
	return v
}

func (r *Response) String() string {
	return r.format.FormatValues(r.Values)
}

type command struct {
	id     uint16
	format MessageFormat
}

// Codec encodes commands and decodes responses by the IDs and formats of
// one dictionary.
type Codec struct {
	dict      *Dictionary
	commands  map[string]command
	responses map[uint16]MessageFormat
}

// ParseDictionary parses the dictionary JSON and every format it lists.
func ParseDictionary(raw []byte) (*Codec, error) {
	dict := &Dictionary{}
	if err := json.Unmarshal(raw, dict); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	c := &Codec{
		dict:      dict,
		commands:  make(map[string]command, len(dict.Commands)),
		responses: make(map[uint16]MessageFormat, len(dict.Responses)),
	}
	for msg, id := range dict.Commands {
		f, err := ParseMessageFormat(msg)
		if err != nil {
			return nil, err
		}
		c.commands[f.Name] = command{id: uint16(id), format: f}
	}
	for msg, id := range dict.Responses {
		f, err := ParseMessageFormat(msg)
		if err != nil {
			return nil, err
		}
		c.responses[uint16(id)] = f
	}
	return c, nil
}

// Dictionary returns the parsed document.
func (c *Codec) Dictionary() *Dictionary {
	return c.dict
}

// Constant returns a dictionary constant.
func (c *Codec) Constant(name string) (string, bool) {
	v, ok := c.dict.Config[name]
	return v, ok
}

// Lookup returns the ID and format of a command.
func (c *Codec) Lookup(name string) (uint16, MessageFormat, error) {
	cmd, ok := c.commands[name]
	if !ok {
		return 0, MessageFormat{}, fmt.Errorf("%w: %s", ErrUnknownMessage, name)
	}
	return cmd.id, cmd.format, nil
}

// Encode returns the ID and arguments of command name.
func (c *Codec) Encode(name string, values map[string]string) (uint16, []byte, error) {
	id, f, err := c.Lookup(name)
	if err != nil {
		return 0, nil, err
	}
	args, err := f.Encode(values)
	if err != nil {
		return 0, nil, err
	}
	return id, args, nil
}

// Decode decodes the arguments of response id.
func (c *Codec) Decode(id uint16, args []byte) (*Response, error) {
	f, ok := c.responses[id]
	if !ok {
		return nil, fmt.Errorf("%w: response ID %d", ErrUnknownMessage, id)
	}
	values, err := f.Decode(args)
	if err != nil {
		return nil, err
	}
	return &Response{Name: f.Name, Values: values, format: f}, nil
}

// CommandFormats returns the known commands in ID order.
func (c *Codec) CommandFormats() []MessageFormat {
	cmds := make([]command, 0, len(c.commands))
	for _, cmd := range c.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].id < cmds[j].id })
	out := make([]MessageFormat, len(cmds))
	for i, cmd := range cmds {
		out[i] = cmd.format
	}
	return out
}
