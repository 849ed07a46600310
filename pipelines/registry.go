package pipelines

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fieldryand/goflow/v2"

	"receipt-e2e/types"
)

// Scenario is an independent, atomically pass/fail test case
type Scenario interface {
	// Name returns the unique identifier for this scenario
	Name() string

	// Description returns a human-readable description of the scenario
	Description() string

	// ValidateConfig validates that all required configuration is present
	ValidateConfig() error

	// Job returns a goflow job factory describing the scenario's steps.
	// Steps run under ctx, so cancelling it aborts triggered runs.
	Job(ctx context.Context) func() *goflow.Job

	// Run executes the scenario and reports every step's outcome
	Run(ctx context.Context) (*types.ScenarioResult, error)
}

// Factory builds a scenario bound to one run's state
type Factory func(state *State) (Scenario, error)

// Descriptor provides metadata about a scenario for listing/discovery
type Descriptor struct {
	Name        string
	Description string
	Steps       []string
	New         Factory
}

var (
	descriptors = make(map[string]Descriptor)
	mu          sync.RWMutex
)

// RegisterDescriptor registers a scenario for discovery. Scenario packages call it from init.
func RegisterDescriptor(d Descriptor) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := descriptors[d.Name]; exists {
		panic(fmt.Sprintf("scenario %q registered twice", d.Name))
	}
	descriptors[d.Name] = d
}

// GetDescriptor returns a scenario descriptor by name
func GetDescriptor(name string) (Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := descriptors[name]
	return d, ok
}

// listNamesLocked returns sorted descriptor names. Caller must hold mu.
func listNamesLocked() []string {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns a sorted list of all registered scenario names
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	return listNamesLocked()
}

// ListWithDescriptions returns a formatted string of all scenarios with descriptions
func ListWithDescriptions() string {
	mu.RLock()
	defer mu.RUnlock()

	if len(descriptors) == 0 {
		return "No scenarios registered"
	}

	var b strings.Builder
	b.WriteString("Available scenarios:\n")
	for _, name := range listNamesLocked() {
		d := descriptors[name]
		stepInfo := ""
		if len(d.Steps) > 0 {
			stepInfo = fmt.Sprintf(" (steps: %s)", strings.Join(d.Steps, " -> "))
		}
		fmt.Fprintf(&b, "  %s - %s%s\n", name, d.Description, stepInfo)
	}
	return b.String()
}
