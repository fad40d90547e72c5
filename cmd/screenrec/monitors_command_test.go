package main

import (
	"encoding/json"
	"strings"
	"testing"

	"screenrec/internal/api"
)

func TestMonitorsOffline(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "monitors")
	if err != nil {
		t.Fatalf("monitors: %v", err)
	}
	requireContains(t, out, "DP-1")
	requireContains(t, out, "HDMI-1")
	requireContains(t, out, ":0.0+1920,0")

	var selectedLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "*") {
			selectedLine = line
		}
	}
	if !strings.Contains(selectedLine, "DP-1") {
		t.Fatalf("expected monitor 0 marked selected, got:\n%s", out)
	}
}

func TestMonitorsJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "monitors", "--json", "--refresh")
	if err != nil {
		t.Fatalf("monitors --json: %v", err)
	}
	var resp api.MonitorListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode monitors json: %v\n%s", err, out)
	}
	if len(resp.Monitors) != 2 || resp.Monitors[1].Index != 1 {
		t.Fatalf("unexpected monitors: %+v", resp.Monitors)
	}
}
