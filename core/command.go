package core

import (
	"sync"

	"hidlight/debug"
	"hidlight/protocol"
)

// CommandHandler is a function that handles a command with raw frame data
// The handler is responsible for decoding its own arguments from the data pointer
type CommandHandler func(data *[]byte) error

// Command is one entry of the command dictionary. Responses (device to host)
// have a nil Handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string // argument format for the dictionary (e.g., "lamp=%c")
	Handler CommandHandler
}

// Responder sends a response frame. *protocol.Transport implements it.
type Responder interface {
	SendCommand(cmdID uint16, args func(output protocol.OutputBuffer))
}

// CommandRegistry maps command IDs to handlers and keeps the text
// dictionary that describes them.
type CommandRegistry struct {
	mu         sync.RWMutex
	commands   map[uint16]*Command
	nameToID   map[string]uint16
	maxID      uint16
	dictionary string
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// Register adds a command with a fixed ID, replacing any command that had
// the same ID.
func (r *CommandRegistry) Register(id uint16, name string, format string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.commands[id]; exists {
		delete(r.nameToID, old.Name)
	}
	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id
	if id > r.maxID {
		r.maxID = id
	}

	r.rebuildDictionary()
}

// RegisterResponse registers a response message (device -> host)
func (r *CommandRegistry) RegisterResponse(id uint16, name string, format string) {
	r.Register(id, name, format, nil)
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

// Dispatch calls the handler registered for cmdID. Response IDs and unknown
// IDs return protocol.ErrUnknownCommand.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		debug.Println("command: unknown command ID " + debug.Utoa(uint32(cmdID)))
		return protocol.ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// GetDictionary returns the command dictionary, one "id name format" line per
// command in ID order.
func (r *CommandRegistry) GetDictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dictionary
}

// rebuildDictionary rebuilds the dictionary string
// Must be called with lock held
func (r *CommandRegistry) rebuildDictionary() {
	dict := ""
	for i := 0; i <= int(r.maxID); i++ {
		cmd, ok := r.commands[uint16(i)]
		if !ok {
			continue
		}
		dict += debug.Itoa(i) + " " + cmd.Name
		if cmd.Format != "" {
			dict += " " + cmd.Format
		}
		dict += "\n"
	}
	r.dictionary = dict
}
