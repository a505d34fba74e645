package core

import (
	"fmt"
	"sort"
	"sync"
)

// Responder sends response messages by their registered name.
type Responder interface {
	Respond(name string, args []byte) error
}

// CommandHandler handles one command. The handler decodes its own
// arguments from data and answers through out.
type CommandHandler func(data *[]byte, out Responder) error

// Command is a registered command or, with a nil Handler, a response.
type Command struct {
	ID      uint16
	Name    string
	Format  string // e.g. "index=%c"
	Handler CommandHandler
}

// Message returns the dictionary form "name format".
func (c *Command) Message() string {
	if c.Format == "" {
		return c.Name
	}
	return c.Name + " " + c.Format
}

// CommandRegistry assigns IDs to commands and responses in registration
// order.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
	nextID   uint16
}

// NewCommandRegistry creates an empty registry. InitCoreCommands must run
// first so the identify messages get their fixed IDs.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// Register adds a command. Registering a name twice returns the first ID.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++

	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id
	return id
}

// RegisterResponse registers a response message (device to host).
func (r *CommandRegistry) RegisterResponse(name string, format string) uint16 {
	return r.Register(name, format, nil)
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// GetCommandByName retrieves a command by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the handler registered for cmdID.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte, out Responder) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return fmt.Errorf("unknown command ID: %d", cmdID)
	}
	if cmd.Handler == nil {
		return fmt.Errorf("%s is a response, not a command", cmd.Name)
	}
	return cmd.Handler(data, out)
}

// GetCommandsAndResponses returns message formats keyed to their IDs.
// Commands have handlers (host to device), responses do not.
func (r *CommandRegistry) GetCommandsAndResponses() (map[string]int, map[string]int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make(map[string]int)
	responses := make(map[string]int)
	for _, cmd := range r.commands {
		if cmd.Handler != nil {
			commands[cmd.Message()] = int(cmd.ID)
		} else {
			responses[cmd.Message()] = int(cmd.ID)
		}
	}
	return commands, responses
}

// Commands returns every registered message in ID order.
func (r *CommandRegistry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
