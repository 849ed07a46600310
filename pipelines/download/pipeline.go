package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fieldryand/goflow/v2"
	"go.uber.org/zap"

	"receipt-e2e/browser"
	"receipt-e2e/pipelines"
	"receipt-e2e/tasks"
	"receipt-e2e/types"
)

// Name identifies the scenario
const Name = "download"

// Steps in execution order
const (
	StepPrepare      = "prepare"
	StepVisit        = "visit"
	StepClick        = "click"
	StepWaitDownload = "wait_download"
	StepReadPDF      = "read_pdf"
	StepAssert       = "assert"
)

// State keys for download scenario data
const (
	KeyDownloadArg  = "download_arg"  // path handed to the task, relative to the project root
	KeyDownloadPath = "download_path" // absolute path the browser writes to
	KeyText         = "receipt_text"
)

// ErrAssertion marks a failed content check
var ErrAssertion = errors.New("assertion failed")

var stepOrder = []string{StepPrepare, StepVisit, StepClick, StepWaitDownload, StepReadPDF, StepAssert}

func init() {
	pipelines.RegisterDescriptor(pipelines.Descriptor{
		Name:        Name,
		Description: "Download the PDF receipt and check its content",
		Steps:       stepOrder,
		New: func(state *pipelines.State) (pipelines.Scenario, error) {
			return New(state)
		},
	})
}

// Scenario visits the shop, downloads the receipt and asserts on its text
type Scenario struct {
	state  *pipelines.State
	config *Config
}

// New creates the scenario for one run
func New(state *pipelines.State) (*Scenario, error) {
	cfg, err := LoadConfig(state.Config)
	if err != nil {
		return nil, fmt.Errorf("loading download config: %w", err)
	}
	return &Scenario{state: state, config: cfg}, nil
}

// Name returns the scenario identifier
func (s *Scenario) Name() string {
	return Name
}

// Description returns a human-readable description
func (s *Scenario) Description() string {
	return "Download the PDF receipt and check its content"
}

// ValidateConfig validates that all required configuration is present
func (s *Scenario) ValidateConfig() error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.state.Browser == nil {
		return fmt.Errorf("browser is required")
	}
	if s.state.Tasks == nil {
		return fmt.Errorf("task invoker is required")
	}
	return nil
}

func (s *Scenario) stepFuncs() map[string]pipelines.StepFunc {
	return map[string]pipelines.StepFunc{
		StepPrepare:      s.prepare,
		StepVisit:        s.visit,
		StepClick:        s.click,
		StepWaitDownload: s.waitDownload,
		StepReadPDF:      s.readPDF,
		StepAssert:       s.assert,
	}
}

// Run executes the steps in order. The result is always returned; err is set when any step failed.
func (s *Scenario) Run(ctx context.Context) (*types.ScenarioResult, error) {
	if err := s.ValidateConfig(); err != nil {
		return nil, err
	}

	flow := pipelines.NewFlow(Name, s.state.RunID)
	fns := s.stepFuncs()
	for _, name := range stepOrder {
		flow.Then(name, fns[name])
	}

	start := time.Now()
	err := flow.Run(ctx)

	result := &types.ScenarioResult{
		RunID:    s.state.RunID,
		Scenario: Name,
		Success:  err == nil,
		Steps:    flow.Results(),
		Duration: time.Since(start),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}

// Job returns a goflow job with one task per step, chained in order
func (s *Scenario) Job(ctx context.Context) func() *goflow.Job {
	return func() *goflow.Job {
		j := &goflow.Job{
			Name:     "download-receipt",
			Schedule: "@manual",
			Active:   true,
		}

		fns := s.stepFuncs()
		for _, name := range stepOrder {
			j.Add(&goflow.Task{
				Name:     name,
				Operator: &stepOp{ctx: ctx, name: name, fn: fns[name]},
			})
		}
		for i := 1; i < len(stepOrder); i++ {
			j.SetDownstream(j.Task(stepOrder[i-1]), j.Task(stepOrder[i]))
		}
		return j
	}
}

// stepOp adapts a step to a goflow operator
type stepOp struct {
	ctx  context.Context
	name string
	fn   pipelines.StepFunc
}

func (o *stepOp) Run() (interface{}, error) {
	if err := o.ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", o.name, err)
	}
	if err := o.fn(o.ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", o.name, err)
	}
	return o.name, nil
}

// --- Steps ---

func (s *Scenario) prepare(ctx context.Context) error {
	cfg := s.state.Config
	arg := filepath.Join(cfg.DownloadsFolder, s.config.DownloadFile)
	abs, err := cfg.Resolve(arg)
	if err != nil {
		return fmt.Errorf("resolving download path: %w", err)
	}
	s.state.Set(KeyDownloadArg, arg)
	s.state.Set(KeyDownloadPath, abs)

	if cfg.TrashAssetsBeforeRuns {
		if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing stale download: %w", err)
		}
	}
	return nil
}

func (s *Scenario) visit(ctx context.Context) error {
	return s.state.Browser.Visit(ctx, s.config.URL)
}

func (s *Scenario) click(ctx context.Context) error {
	return s.state.Browser.Click(ctx, s.config.Selector)
}

func (s *Scenario) waitDownload(ctx context.Context) error {
	return browser.WaitForFile(ctx, s.state.GetString(KeyDownloadPath), s.state.Config.DefaultCommandTimeout)
}

func (s *Scenario) readPDF(ctx context.Context) error {
	text, err := s.state.Tasks.Invoke(ctx, tasks.ReadPDFTask, s.state.GetString(KeyDownloadArg))
	if err != nil {
		return err
	}
	s.state.Set(KeyText, text)
	zap.L().Debug("receipt text", zap.String("scenario", Name), zap.Int("text_len", len(text)))
	return nil
}

func (s *Scenario) assert(ctx context.Context) error {
	return assertContains(s.state.GetString(KeyText), s.config.Expect)
}

// assertContains reports every expected substring missing from text
func assertContains(text string, expect []string) error {
	var errs []error
	for _, want := range expect {
		if !strings.Contains(text, want) {
			errs = append(errs, fmt.Errorf("%w: expected text to contain %q", ErrAssertion, want))
		}
	}
	return errors.Join(errs...)
}
