package pipelines

import (
	"sync"

	"github.com/google/uuid"

	"receipt-e2e/browser"
	"receipt-e2e/configs"
	"receipt-e2e/tasks"
)

// State holds what the steps of one scenario run share.
// Common fields are defined here, scenario-specific data goes in the Data map.
// State is safe for concurrent access via Get/Set methods.
type State struct {
	// RunID identifies this run in logs and task calls
	RunID string

	// Config is the run configuration, built once at startup
	Config *configs.Config

	// Tasks calls out-of-browser tasks by name
	Tasks tasks.Invoker

	// Browser is the session the scenario drives
	Browser browser.Driver

	mu   sync.RWMutex
	Data map[string]interface{}
}

// NewState creates the state for a new run
func NewState(cfg *configs.Config, invoker tasks.Invoker, driver browser.Driver) *State {
	return &State{
		RunID:   uuid.NewString(),
		Config:  cfg,
		Tasks:   invoker,
		Browser: driver,
		Data:    make(map[string]interface{}),
	}
}

// Set stores a value in the state (thread-safe)
func (s *State) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Data[key] = value
}

// Get retrieves a value from the state (thread-safe)
func (s *State) Get(key string) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Data[key]
}

// GetString retrieves a string value from the state (thread-safe)
func (s *State) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.Data[key].(string); ok {
		return v
	}
	return ""
}
