package main

import (
	"strings"
	"testing"
)

func TestStageLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"deep_dive", "Deep Dive"},
		{"suggested", "Suggested"},
		{" building ", "Building"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := stageLabel(tc.in); got != tc.want {
			t.Fatalf("stageLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Title"},
		[][]string{{"1", "Solar kiosk"}, {"2", "Night market"}},
		nil,
	)
	for _, want := range []string{"ID", "Title", "Solar kiosk", "Night market"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Daemon", statusOK, "running (pid 42)", false)
	if !strings.Contains(line, "Daemon:") || !strings.Contains(line, "[OK] running (pid 42)") {
		t.Fatalf("line = %q", line)
	}

	colored := renderStatusLine("Daemon", statusError, "not running", true)
	if !strings.Contains(colored, ansiRed) || !strings.Contains(colored, ansiReset) {
		t.Fatalf("colored line = %q", colored)
	}
}
