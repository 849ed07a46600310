package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fieldryand/goflow/v2"
	"go.uber.org/zap"

	"receipt-e2e/browser"
	"receipt-e2e/configs"
	"receipt-e2e/logger"
	"receipt-e2e/pipelines"
	_ "receipt-e2e/pipelines/download" // Register download scenario
	"receipt-e2e/tasks"
	"receipt-e2e/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	scenarioFlag := flag.String("scenario", "", "comma-separated scenarios to run (default: all)")
	list := flag.Bool("list", false, "list scenarios and exit")
	taskServer := flag.String("task-server", "", "URL of a running task server (default: start one in-process)")
	history := flag.Bool("runs", false, "print recent runs from Cloud Logging and exit")
	uiAddr := flag.String("ui", "", "serve the goflow UI on this address instead of running once")
	uiPath := flag.String("ui-path", "ui/", "goflow UI assets directory")
	flag.Parse()

	if *list {
		fmt.Print(pipelines.ListWithDescriptions())
		return 0
	}

	cfg, err := configs.Load()
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))
		return 2
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		logger.Error("invalid log level", zap.String("level", cfg.LogLevel), zap.Error(err))
		return 2
	}
	defer logger.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	names, err := selectScenarios(*scenarioFlag)
	if err != nil {
		logger.Error("invalid scenario selection", zap.Error(err))
		return 2
	}

	if *history {
		if err := printRuns(ctx, cfg, names); err != nil {
			logger.Error("failed to read run history", zap.Error(err))
			return 1
		}
		return 0
	}

	invoker, shutdown, err := connectTasks(ctx, cfg, *taskServer)
	if err != nil {
		logger.Error("task bridge unavailable", zap.Error(err))
		return 2
	}
	defer shutdown()

	driver, err := browser.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to start browser", zap.String("browser", cfg.Browser), zap.Error(err))
		return 2
	}
	defer driver.Close()

	if *uiAddr != "" {
		return serveUI(ctx, cfg, invoker, driver, names, *uiAddr, *uiPath)
	}

	failed := 0
	for _, name := range names {
		result, err := runScenario(ctx, cfg, invoker, driver, name)
		report(name, result, err)
		if err != nil {
			failed++
		}
	}

	fmt.Printf("\n%d passing, %d failing\n", len(names)-failed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func selectScenarios(flagValue string) ([]string, error) {
	if flagValue == "" {
		return pipelines.List(), nil
	}
	var names []string
	for _, name := range strings.Split(flagValue, ",") {
		name = strings.TrimSpace(name)
		if _, ok := pipelines.GetDescriptor(name); !ok {
			return nil, fmt.Errorf("unknown scenario %q\n%s", name, pipelines.ListWithDescriptions())
		}
		names = append(names, name)
	}
	return names, nil
}

// connectTasks returns an invoker for the task bridge. Without a remote URL it
// registers the tasks and serves them in-process on cfg.TaskServerAddr.
func connectTasks(ctx context.Context, cfg *configs.Config, remote string) (tasks.Invoker, func(), error) {
	if remote != "" {
		client := tasks.NewClient(remote, cfg.TaskTimeout)
		if err := client.Health(ctx); err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}

	reg := tasks.NewRegistry()
	if err := tasks.Setup(cfg, reg); err != nil {
		return nil, nil, err
	}

	ln, err := net.Listen("tcp", cfg.TaskServerAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s: %w", cfg.TaskServerAddr, err)
	}
	server := &http.Server{Handler: tasks.NewHandler(reg), ReadTimeout: 30 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("task server failed", zap.Error(err))
		}
	}()

	baseURL := "http://" + ln.Addr().String()
	logger.Info("task server started", zap.String("url", baseURL), zap.Strings("tasks", reg.Names()))

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
	return tasks.NewClient(baseURL, cfg.TaskTimeout), shutdown, nil
}

func newScenario(cfg *configs.Config, invoker tasks.Invoker, driver browser.Driver, name string) (pipelines.Scenario, error) {
	d, ok := pipelines.GetDescriptor(name)
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
	return d.New(pipelines.NewState(cfg, invoker, driver))
}

func runScenario(ctx context.Context, cfg *configs.Config, invoker tasks.Invoker, driver browser.Driver, name string) (*types.ScenarioResult, error) {
	s, err := newScenario(cfg, invoker, driver, name)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

func report(name string, result *types.ScenarioResult, err error) {
	if result == nil {
		fmt.Printf("  x %s: %v\n", name, err)
		return
	}
	if result.Success {
		fmt.Printf("  ok %s (%s)\n", name, result.Duration.Round(time.Millisecond))
		return
	}
	fmt.Printf("  x %s failed at %s (%s)\n", name, result.FailedStep(), result.Duration.Round(time.Millisecond))
	for _, line := range strings.Split(result.Error, "\n") {
		fmt.Printf("      %s\n", line)
	}
}

// serveUI registers each scenario as a manually triggered goflow job
func serveUI(ctx context.Context, cfg *configs.Config, invoker tasks.Invoker, driver browser.Driver, names []string, addr, uiPath string) int {
	gf := goflow.New(goflow.Options{
		UIPath:    uiPath,
		Streaming: true,
	})
	for _, name := range names {
		s, err := newScenario(cfg, invoker, driver, name)
		if err != nil {
			logger.Error("failed to create scenario", zap.String("scenario", name), zap.Error(err))
			return 2
		}
		gf.AddJob(s.Job(ctx))
	}

	logger.Info("serving goflow UI", zap.String("addr", addr), zap.Strings("scenarios", names))
	gf.Run(addr)
	return 0
}

func printRuns(ctx context.Context, cfg *configs.Config, names []string) error {
	if cfg.GCPProjectID == "" {
		return errors.New("GCP_PROJECT_ID is required for -runs")
	}
	client, err := tasks.NewLogClient(ctx, cfg.GCPProjectID, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer client.Close()

	var all []tasks.ScenarioRun
	for _, name := range names {
		entries, err := client.QueryLogs(ctx, tasks.LogQuery{Scenario: name})
		if err != nil {
			return err
		}
		all = append(all, tasks.GroupByRun(entries, cfg.GCPProjectID, cfg.ServiceName)...)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(all)
}
