package pipelines

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"receipt-e2e/types"
)

// StepFunc is one unit of a scenario
type StepFunc func(ctx context.Context) error

// Flow orchestrates step execution with dependency management.
// Steps whose dependencies are satisfied run together; the first failure stops the flow.
type Flow struct {
	name   string
	runID  string
	steps  map[string]*step
	order  []string
	mu     sync.Mutex
	result map[string]types.StepResult
}

type step struct {
	name    string
	fn      StepFunc
	deps    []string
	done    bool
	running bool
	err     error
}

// NewFlow creates a new scenario flow. runID tags every log line of this run.
func NewFlow(name, runID string) *Flow {
	return &Flow{
		name:   name,
		runID:  runID,
		steps:  make(map[string]*step),
		result: make(map[string]types.StepResult),
	}
}

// AddStep adds a step to the flow with optional dependencies
func (f *Flow) AddStep(name string, fn StepFunc, deps ...string) {
	f.steps[name] = &step{
		name: name,
		fn:   fn,
		deps: deps,
	}
	f.order = append(f.order, name)
}

// Then adds a step depending on the most recently added one
func (f *Flow) Then(name string, fn StepFunc) {
	if len(f.order) == 0 {
		f.AddStep(name, fn)
		return
	}
	f.AddStep(name, fn, f.order[len(f.order)-1])
}

// Results returns step outcomes in declaration order. Steps that never ran are skipped.
func (f *Flow) Results() []types.StepResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]types.StepResult, 0, len(f.order))
	for _, name := range f.order {
		r, ok := f.result[name]
		if !ok {
			r = types.StepResult{Name: name, Status: types.StepSkipped}
		}
		results = append(results, r)
	}
	return results
}

// Run executes all steps in dependency order
func (f *Flow) Run(ctx context.Context) error {
	logger := zap.L().With(zap.String("scenario", f.name), zap.String("run_id", f.runID))
	startTime := time.Now()

	logger.Info("scenario started",
		zap.Int("step_count", len(f.steps)),
		zap.Strings("steps", f.order))

	for _, s := range f.steps {
		for _, dep := range s.deps {
			if _, ok := f.steps[dep]; !ok {
				return fmt.Errorf("scenario %s: step %s depends on unknown step %s", f.name, s.name, dep)
			}
		}
	}

	completedCount := 0

	for {
		if err := ctx.Err(); err != nil {
			logger.Error("scenario failed", zap.Error(err), zap.Duration("duration", time.Since(startTime)))
			return err
		}

		ready := f.findReadySteps()
		if len(ready) == 0 {
			if f.allDone() {
				logger.Info("scenario completed",
					zap.Duration("duration", time.Since(startTime)),
					zap.Int("steps_completed", completedCount))
				return nil
			}
			return fmt.Errorf("scenario %s: deadlock detected", f.name)
		}

		var wg sync.WaitGroup
		errChan := make(chan error, len(ready))

		for _, s := range ready {
			s.running = true
			wg.Add(1)
			go func(s *step) {
				defer wg.Done()
				stepStart := time.Now()
				logger.Info("step started", zap.String("step", s.name))

				err := s.fn(ctx)
				elapsed := time.Since(stepStart)

				f.mu.Lock()
				defer f.mu.Unlock()
				s.running = false
				if err != nil {
					s.err = fmt.Errorf("%s: %w", s.name, err)
					f.result[s.name] = types.StepResult{Name: s.name, Status: types.StepFailed, Duration: elapsed, Error: err.Error()}
					errChan <- s.err
					logger.Error("step failed",
						zap.String("step", s.name),
						zap.Error(err),
						zap.Duration("duration", elapsed))
					return
				}
				s.done = true
				f.result[s.name] = types.StepResult{Name: s.name, Status: types.StepCompleted, Duration: elapsed}
				logger.Info("step completed",
					zap.String("step", s.name),
					zap.Duration("duration", elapsed))
			}(s)
		}

		wg.Wait()
		close(errChan)
		completedCount += len(ready) - len(errChan)

		for err := range errChan {
			logger.Error("scenario failed",
				zap.Duration("duration", time.Since(startTime)),
				zap.Int("steps_completed", completedCount),
				zap.Error(err))
			return err
		}
	}
}

func (f *Flow) findReadySteps() []*step {
	var ready []*step
	for _, name := range f.order {
		s := f.steps[name]
		if s.done || s.running || s.err != nil {
			continue
		}
		allDepsDone := true
		for _, dep := range s.deps {
			if ds := f.steps[dep]; !ds.done {
				allDepsDone = false
				break
			}
		}
		if allDepsDone {
			ready = append(ready, s)
		}
	}
	return ready
}

func (f *Flow) allDone() bool {
	for _, s := range f.steps {
		if !s.done {
			return false
		}
	}
	return true
}
