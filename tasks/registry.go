package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrTaskExists is returned when a name is registered twice
	ErrTaskExists = errors.New("task already registered")

	// ErrTaskNotFound is returned when invoking a name nobody registered
	ErrTaskNotFound = errors.New("task not registered")
)

// TaskFunc is the signature every out-of-browser task implements:
// one string argument in, one string value or an error out.
type TaskFunc func(ctx context.Context, arg string) (string, error)

// Invoker calls a task by name. Registry invokes in-process, Client over the bridge.
type Invoker interface {
	Invoke(ctx context.Context, name, arg string) (string, error)
}

// Registry is the dispatch table of named tasks for one run
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]TaskFunc
}

// NewRegistry creates an empty task table
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]TaskFunc)}
}

// Register adds a task. A name can only be registered once.
func (r *Registry) Register(name string, fn TaskFunc) error {
	if name == "" {
		return errors.New("task name is required")
	}
	if fn == nil {
		return fmt.Errorf("task %s: nil func", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrTaskExists)
	}
	r.tasks[name] = fn
	return nil
}

// Get returns a task by name
func (r *Registry) Get(name string) (TaskFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tasks[name]
	return fn, ok
}

// Names returns the sorted registered task names
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named task and waits for it to settle
func (r *Registry) Invoke(ctx context.Context, name, arg string) (string, error) {
	fn, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrTaskNotFound)
	}

	logger := zap.L().With(zap.String("task", name))
	start := time.Now()
	logger.Info("task started", zap.String("arg", arg))

	value, err := fn(ctx, arg)
	if err != nil {
		logger.Error("task failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("task %s: %w", name, err)
	}

	logger.Info("task completed", zap.Duration("duration", time.Since(start)))
	return value, nil
}
