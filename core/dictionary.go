package core

import (
	"encoding/json"
	"strconv"
	"sync"
)

// DictionaryData is the JSON document the host downloads with identify.
type DictionaryData struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// Dictionary describes the firmware to the host: message formats with
// their IDs, constants and enumerations.
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]string
	enumerations  map[string][]string
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cached        []byte
}

// NewDictionary creates a dictionary over cmdReg.
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]string),
		enumerations:  make(map[string][]string),
		commandReg:    cmdReg,
		version:       "benchscope-0.3.0",
		buildVersions: "go",
	}
}

// AddConstant adds a constant. Values are formatted as strings.
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = valueToString(value)
	d.cached = nil
}

// AddEnumeration adds an enumeration; each value maps to its index.
func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enumerations[name] = append([]string(nil), values...)
	d.cached = nil
}

// SetVersion sets the firmware version string
func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	d.cached = nil
}

// SetBuildVersions sets the build versions string
func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
	d.cached = nil
}

// Data returns the dictionary contents.
func (d *Dictionary) Data() DictionaryData {
	// Fetch registry contents before taking our own lock.
	commands, responses := d.commandReg.GetCommandsAndResponses()

	d.mu.RLock()
	defer d.mu.RUnlock()

	data := DictionaryData{
		Version:       d.version,
		BuildVersions: d.buildVersions,
		Config:        make(map[string]string, len(d.constants)),
		Commands:      commands,
		Responses:     responses,
	}
	for name, v := range d.constants {
		data.Config[name] = v
	}
	if len(d.enumerations) > 0 {
		data.Enumerations = make(map[string]map[string]int, len(d.enumerations))
		for name, values := range d.enumerations {
			m := make(map[string]int, len(values))
			for i, v := range values {
				if v != "" {
					m[v] = i
				}
			}
			data.Enumerations[name] = m
		}
	}
	return data
}

// BuildDictionary builds and caches the JSON document. Call after all
// commands are registered.
func (d *Dictionary) BuildDictionary() error {
	// encoding/json sorts map keys, so the output is stable.
	raw, err := json.Marshal(d.Data())
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.cached = raw
	d.mu.Unlock()
	DebugPrintln("[dict] built " + strconv.Itoa(len(raw)) + " bytes")
	return nil
}

// Generate returns the JSON document, building it if needed.
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cached
	d.mu.RUnlock()
	if cached != nil {
		return cached
	}
	if err := d.BuildDictionary(); err != nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// GetChunk returns up to count bytes of the document starting at offset.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return []byte{}
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

func valueToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}
