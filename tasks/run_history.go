package tasks

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"cloud.google.com/go/logging/logadmin"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/structpb"

	"receipt-e2e/types"
)

// LogEntry is a scenario log line read back from Cloud Logging
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	RunID     string    `json:"run_id,omitempty"`
	Scenario  string    `json:"scenario,omitempty"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
}

// ScenarioRun is one scenario execution rebuilt from its log lines
type ScenarioRun struct {
	RunID     string             `json:"run_id,omitempty"`
	Scenario  string             `json:"scenario"`
	StartTime time.Time          `json:"start_time"`
	EndTime   time.Time          `json:"end_time,omitempty"`
	Duration  float64            `json:"duration,omitempty"`
	Success   bool               `json:"success"`
	Steps     []types.StepResult `json:"steps"`
	Error     string             `json:"error,omitempty"`
	LogsURL   string             `json:"logs_url,omitempty"`
}

// LogQuery filters QueryLogs
type LogQuery struct {
	Scenario string        // optional
	Severity string        // optional minimum severity (INFO, WARNING, ERROR)
	Since    time.Duration // default 24h
	Limit    int           // default 200
}

// LogClient reads scenario logs back from Cloud Logging
type LogClient struct {
	client      *logadmin.Client
	projectID   string
	serviceName string
}

// NewLogClient creates a Cloud Logging admin client for projectID
func NewLogClient(ctx context.Context, projectID, serviceName string) (*LogClient, error) {
	client, err := logadmin.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create logadmin client: %w", err)
	}
	return &LogClient{
		client:      client,
		projectID:   projectID,
		serviceName: serviceName,
	}, nil
}

// Close closes the logging client
func (c *LogClient) Close() error {
	return c.client.Close()
}

// QueryLogs returns scenario log entries, newest first
func (c *LogClient) QueryLogs(ctx context.Context, q LogQuery) ([]LogEntry, error) {
	if q.Since == 0 {
		q.Since = 24 * time.Hour
	}
	if q.Limit == 0 {
		q.Limit = 200
	}

	iter := c.client.Entries(ctx,
		logadmin.Filter(buildFilter(c.serviceName, time.Now().Add(-q.Since), q)),
		logadmin.NewestFirst(),
	)

	var entries []LogEntry
	for len(entries) < q.Limit {
		entry, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate logs: %w", err)
		}

		logEntry := LogEntry{
			Timestamp: entry.Timestamp,
			Severity:  entry.Severity.String(),
		}
		switch p := entry.Payload.(type) {
		case *structpb.Struct:
			parsePayload(&logEntry, p.AsMap())
		case map[string]interface{}:
			parsePayload(&logEntry, p)
		case string:
			logEntry.Message = p
		}

		if logEntry.Message == "" {
			continue
		}
		entries = append(entries, logEntry)
	}

	return entries, nil
}

func buildFilter(serviceName string, since time.Time, q LogQuery) string {
	filter := fmt.Sprintf(
		`resource.labels.service_name="%s" AND timestamp>="%s" AND jsonPayload.scenario!=""`,
		serviceName,
		since.Format(time.RFC3339),
	)
	if q.Severity != "" {
		filter += fmt.Sprintf(` AND severity>="%s"`, q.Severity)
	}
	if q.Scenario != "" {
		filter += fmt.Sprintf(` AND jsonPayload.scenario="%s"`, q.Scenario)
	}
	return filter
}

func parsePayload(e *LogEntry, fields map[string]interface{}) {
	e.Message, _ = fields["msg"].(string)
	e.RunID, _ = fields["run_id"].(string)
	e.Scenario, _ = fields["scenario"].(string)
	e.Step, _ = fields["step"].(string)
	e.Error, _ = fields["error"].(string)
	e.Duration, _ = fields["duration"].(float64)
}

// buildLogsURL links to the Cloud Logging console positioned at the run start
func buildLogsURL(projectID, serviceName string, startTime time.Time) string {
	query := fmt.Sprintf(`resource.labels.service_name="%s"`, serviceName)
	return fmt.Sprintf("https://console.cloud.google.com/logs/query;query=%s;cursorTimestamp=%s?project=%s",
		url.QueryEscape(query), url.QueryEscape(startTime.Format(time.RFC3339Nano)), projectID)
}

// GroupByRun folds log entries into scenario runs, newest run first.
// Entries carrying a run_id are grouped by it; others attach to the latest
// run of the same scenario that started before them.
func GroupByRun(entries []LogEntry, projectID, serviceName string) []ScenarioRun {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]LogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var runs []*ScenarioRun
	byID := make(map[string]*ScenarioRun)

	newRun := func(e LogEntry) *ScenarioRun {
		run := &ScenarioRun{
			RunID:     e.RunID,
			Scenario:  e.Scenario,
			StartTime: e.Timestamp,
			Success:   true,
			Steps:     []types.StepResult{},
		}
		runs = append(runs, run)
		if e.RunID != "" {
			byID[e.RunID] = run
		}
		return run
	}

	latest := func(e LogEntry) *ScenarioRun {
		if e.RunID != "" {
			return byID[e.RunID]
		}
		var current *ScenarioRun
		for _, r := range runs {
			if r.Scenario == e.Scenario && !e.Timestamp.Before(r.StartTime) {
				if current == nil || r.StartTime.After(current.StartTime) {
					current = r
				}
			}
		}
		return current
	}

	for _, e := range sorted {
		if e.Scenario == "" {
			continue
		}
		if e.Message == "scenario started" {
			newRun(e)
			continue
		}

		run := latest(e)
		if run == nil {
			run = newRun(e)
		}

		switch {
		case e.Message == "step completed" && e.Step != "":
			run.Steps = append(run.Steps, types.StepResult{
				Name:     e.Step,
				Status:   types.StepCompleted,
				Duration: time.Duration(e.Duration * float64(time.Second)),
			})
		case e.Message == "step failed" && e.Step != "":
			run.Steps = append(run.Steps, types.StepResult{
				Name:   e.Step,
				Status: types.StepFailed,
				Error:  e.Error,
			})
			run.Success = false
			run.Error = e.Error
		case e.Message == "scenario completed" || e.Message == "scenario failed":
			run.Duration = e.Duration
			run.EndTime = e.Timestamp
		}
	}

	result := make([]ScenarioRun, 0, len(runs))
	for _, run := range runs {
		run.LogsURL = buildLogsURL(projectID, serviceName, run.StartTime)
		result = append(result, *run)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})

	return result
}
