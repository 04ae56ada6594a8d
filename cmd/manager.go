package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/mwantia/mountfs/log"
)

// Manager handles command registration, parsing, and execution
type Manager struct {
	mu   sync.RWMutex
	log  *log.Logger
	api  API
	cmds map[string]Command
}

// NewManager creates a manager running commands against api.
func NewManager(api API, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.NewLogger("cmd", log.Info, "", false)
	}

	return &Manager{
		log:  logger,
		api:  api,
		cmds: make(map[string]Command),
	}
}

// Register registers a custom command
func (cm *Manager) Register(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}

	name := cmd.Name()
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.cmds[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}

	cm.cmds[name] = cmd
	return nil
}

// Unregister removes a registered command
func (cm *Manager) Unregister(name string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.cmds[name]; !exists {
		return fmt.Errorf("command not found: %s", name)
	}

	delete(cm.cmds, name)
	return nil
}

// Get returns a command by name
func (cm *Manager) Get(name string) (Command, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	cmd, exists := cm.cmds[name]
	if !exists {
		return nil, fmt.Errorf("command not found: %s", name)
	}

	return cmd, nil
}

// List returns all registered commands ordered by name
func (cm *Manager) List() []Command {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	commands := make([]Command, 0, len(cm.cmds))
	for _, cmd := range cm.cmds {
		commands = append(commands, cmd)
	}

	sort.Slice(commands, func(i, j int) bool {
		return commands[i].Name() < commands[j].Name()
	})
	return commands
}

// Execute parses and executes a command, writing its output to w.
// The lock is not held while the command runs, so commands may use the
// manager themselves.
func (cm *Manager) Execute(ctx context.Context, w io.Writer, args ...string) (int, error) {
	if len(args) == 0 {
		return 1, fmt.Errorf("no command specified")
	}

	cmdName := args[0]
	cmdArgs := args[1:]

	cmd, err := cm.Get(cmdName)
	if err != nil {
		return 1, err
	}

	parsedArgs, err := NewParser(cmd.GetFlags()).Parse(cmdArgs)
	if err != nil {
		return 1, fmt.Errorf("parse error: %w", err)
	}

	cm.log.Debug("Execute: running '%s' with %v", cmdName, parsedArgs.Args)

	code, err := cmd.Execute(ctx, cm.api, parsedArgs, w)
	if err != nil {
		cm.log.Debug("Execute: '%s' failed with code %d - %v", cmdName, code, err)
	}
	return code, err
}
