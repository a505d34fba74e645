package protocol

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParamType is the wire type of one message parameter.
type ParamType uint8

const (
	ParamUint32 ParamType = iota // %u
	ParamInt32                   // %i
	ParamUint16                  // %hu
	ParamInt16                   // %hi
	ParamByte                    // %c
	ParamBytes                   // %*s, %.*s
	ParamString                  // %s
)

var paramTypes = map[string]ParamType{
	"%u":   ParamUint32,
	"%i":   ParamInt32,
	"%hu":  ParamUint16,
	"%hi":  ParamInt16,
	"%c":   ParamByte,
	"%*s":  ParamBytes,
	"%.*s": ParamBytes,
	"%s":   ParamString,
}

// Param is one named parameter of a message.
type Param struct {
	Name string
	Type ParamType
}

// MessageFormat is a parsed dictionary entry such as
// "fn_gen_set_frequency freq=%u".
type MessageFormat struct {
	Name   string
	Params []Param
}

// ParseMessageFormat parses a dictionary message string.
func ParseMessageFormat(msg string) (MessageFormat, error) {
	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return MessageFormat{}, fmt.Errorf("empty message format")
	}
	f := MessageFormat{Name: fields[0]}
	for _, field := range fields[1:] {
		name, spec, ok := strings.Cut(field, "=")
		if !ok || name == "" {
			return MessageFormat{}, fmt.Errorf("%s: malformed parameter %q", f.Name, field)
		}
		typ, ok := paramTypes[spec]
		if !ok {
			return MessageFormat{}, fmt.Errorf("%s: unknown type %q for %s", f.Name, spec, name)
		}
		f.Params = append(f.Params, Param{Name: name, Type: typ})
	}
	return f, nil
}

// String returns the dictionary form of the format.
func (f MessageFormat) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	for _, p := range f.Params {
		b.WriteByte(' ')
		b.WriteString(p.Name)
		b.WriteByte('=')
		for spec, typ := range paramTypes {
			if typ == p.Type && spec != "%.*s" {
				b.WriteString(spec)
				break
			}
		}
	}
	return b.String()
}

// Encode encodes the arguments named in values. Every parameter must be
// present; integers accept any strconv base prefix.
func (f MessageFormat) Encode(values map[string]string) ([]byte, error) {
	var out []byte
	for _, p := range f.Params {
		raw, ok := values[p.Name]
		if !ok {
			return nil, fmt.Errorf("%s: missing parameter %s", f.Name, p.Name)
		}
		switch p.Type {
		case ParamBytes, ParamString:
			out = AppendVLQString(out, raw)
		default:
			v, err := strconv.ParseInt(raw, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: parameter %s: %w", f.Name, p.Name, err)
			}
			if err := p.checkRange(v); err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			out = AppendVLQInt(out, int32(v))
		}
	}
	return out, nil
}

func (p Param) checkRange(v int64) error {
	lo, hi := int64(0), int64(0)
	switch p.Type {
	case ParamUint32:
		lo, hi = 0, 1<<32-1
	case ParamInt32:
		lo, hi = -1<<31, 1<<31-1
	case ParamUint16:
		lo, hi = 0, 1<<16-1
	case ParamInt16:
		lo, hi = -1<<15, 1<<15-1
	case ParamByte:
		lo, hi = 0, 255
	}
	if v < lo || v > hi {
		return fmt.Errorf("parameter %s=%d out of range [%d, %d]", p.Name, v, lo, hi)
	}
	return nil
}

// Decode decodes arguments into a map of int64 or []byte values.
func (f MessageFormat) Decode(args []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(f.Params))
	for _, p := range f.Params {
		switch p.Type {
		case ParamBytes, ParamString:
			b, err := DecodeVLQBytes(&args)
			if err != nil {
				return nil, fmt.Errorf("%s: parameter %s: %w", f.Name, p.Name, err)
			}
			out[p.Name] = append([]byte(nil), b...)
		default:
			v, err := DecodeVLQInt(&args)
			if err != nil {
				return nil, fmt.Errorf("%s: parameter %s: %w", f.Name, p.Name, err)
			}
			switch p.Type {
			case ParamUint32:
				out[p.Name] = int64(uint32(v))
			case ParamUint16:
				out[p.Name] = int64(uint16(v))
			case ParamByte:
				out[p.Name] = int64(uint8(v))
			case ParamInt16:
				out[p.Name] = int64(int16(v))
			default:
				out[p.Name] = int64(v)
			}
		}
	}
	return out, nil
}

// FormatValues renders decoded values as "name k=v ..." in parameter order.
func (f MessageFormat) FormatValues(values map[string]interface{}) string {
	var b strings.Builder
	b.WriteString(f.Name)
	for _, p := range f.Params {
		b.WriteByte(' ')
		b.WriteString(p.Name)
		b.WriteByte('=')
		switch v := values[p.Name].(type) {
		case []byte:
			b.WriteString(strconv.Quote(string(v)))
		case int64:
			b.WriteString(strconv.FormatInt(v, 10))
		}
	}
	return b.String()
}

// ParseCommandLine splits "name k=v k=v" into the name and a value map.
func ParseCommandLine(fields []string) (string, map[string]string, error) {
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	values := make(map[string]string, len(fields)-1)
	for _, field := range fields[1:] {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			return "", nil, fmt.Errorf("expected key=value, got %q", field)
		}
		values[k] = v
	}
	return fields[0], values, nil
}

// SortedNames returns the keys of a message ID map ordered by ID.
func SortedNames(messages map[string]int) []string {
	names := make([]string, 0, len(messages))
	for name := range messages {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return messages[names[i]] < messages[names[j]] })
	return names
}
