package tasks

import (
	"strings"
	"testing"
	"time"

	"receipt-e2e/types"
)

func TestGroupByRun(t *testing.T) {
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	at := func(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

	entries := []LogEntry{
		// newest first, as QueryLogs returns them
		{Timestamp: at(12), Scenario: "download", RunID: "run-2", Message: "step failed", Step: "click", Error: "element not found"},
		{Timestamp: at(11), Scenario: "download", RunID: "run-2", Message: "step completed", Step: "visit", Duration: 0.5},
		{Timestamp: at(10), Scenario: "download", RunID: "run-2", Message: "scenario started"},
		{Timestamp: at(4), Scenario: "download", RunID: "run-1", Message: "scenario completed", Duration: 3.2},
		{Timestamp: at(3), Scenario: "download", RunID: "run-1", Message: "step completed", Step: "assert"},
		{Timestamp: at(2), Scenario: "download", RunID: "run-1", Message: "step completed", Step: "read_pdf", Duration: 1.5},
		{Timestamp: at(0), Scenario: "download", RunID: "run-1", Message: "scenario started"},
		{Timestamp: at(1), Message: "unrelated"},
	}

	runs := GroupByRun(entries, "proj", "receipt-e2e")
	if len(runs) != 2 {
		t.Fatalf("GroupByRun() returned %d runs, want 2", len(runs))
	}

	latest := runs[0]
	if latest.RunID != "run-2" {
		t.Errorf("runs[0].RunID = %q, want run-2", latest.RunID)
	}
	if latest.Success {
		t.Error("run-2 should have failed")
	}
	if latest.Error != "element not found" {
		t.Errorf("run-2 error = %q", latest.Error)
	}
	if len(latest.Steps) != 2 || latest.Steps[1].Status != types.StepFailed {
		t.Errorf("run-2 steps = %+v", latest.Steps)
	}

	first := runs[1]
	if !first.Success {
		t.Error("run-1 should have succeeded")
	}
	if first.Duration != 3.2 {
		t.Errorf("run-1 duration = %v, want 3.2", first.Duration)
	}
	if len(first.Steps) != 2 || first.Steps[0].Name != "read_pdf" || first.Steps[0].Duration != 1500*time.Millisecond {
		t.Errorf("run-1 steps = %+v", first.Steps)
	}
	if !strings.Contains(first.LogsURL, "project=proj") {
		t.Errorf("LogsURL = %q", first.LogsURL)
	}
}

func TestGroupByRun_WithoutRunID(t *testing.T) {
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	entries := []LogEntry{
		{Timestamp: base, Scenario: "download", Message: "scenario started"},
		{Timestamp: base.Add(time.Second), Scenario: "download", Message: "step completed", Step: "visit"},
	}

	runs := GroupByRun(entries, "proj", "svc")
	if len(runs) != 1 {
		t.Fatalf("GroupByRun() returned %d runs, want 1", len(runs))
	}
	if len(runs[0].Steps) != 1 {
		t.Errorf("steps = %+v", runs[0].Steps)
	}
}

func TestGroupByRun_Empty(t *testing.T) {
	if runs := GroupByRun(nil, "proj", "svc"); runs != nil {
		t.Errorf("GroupByRun(nil) = %v, want nil", runs)
	}
}

func TestBuildFilter(t *testing.T) {
	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	filter := buildFilter("receipt-e2e", since, LogQuery{Scenario: "download", Severity: "ERROR"})

	for _, want := range []string{
		`resource.labels.service_name="receipt-e2e"`,
		`timestamp>="2026-10-01T00:00:00Z"`,
		`jsonPayload.scenario="download"`,
		`severity>="ERROR"`,
	} {
		if !strings.Contains(filter, want) {
			t.Errorf("filter %q missing %q", filter, want)
		}
	}
}

func TestParsePayload(t *testing.T) {
	var e LogEntry
	parsePayload(&e, map[string]interface{}{
		"msg":      "step failed",
		"scenario": "download",
		"step":     "assert",
		"error":    "expected text to contain \"Papito Shop\"",
		"duration": 0.25,
		"run_id":   "abc",
	})

	if e.Message != "step failed" || e.Step != "assert" || e.RunID != "abc" || e.Duration != 0.25 {
		t.Errorf("parsePayload() = %+v", e)
	}
}
