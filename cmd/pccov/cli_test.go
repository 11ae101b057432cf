package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tturner/pccov/internal/logging"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRequiredArgsErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"convert without args", nil, "requires at least 2 arg(s)"},
		{"convert with only input", []string{"in.json"}, "requires at least 2 arg(s)"},
		{"merge without output", []string{"merge", "a.info"}, `required flag(s) "output" not set`},
		{"merge without inputs", []string{"merge", "-o", "x.info"}, "requires at least 1 arg(s)"},
		{"summary without inputs", []string{"summary"}, "requires at least 1 arg(s)"},
		{"bad log level", []string{"--log-level", "loud", "--no-backfill", "in.json", "out.info"}, "loud"},
		{"bad jobs", []string{"--jobs", "0", "--no-backfill", "in.json", "out.info"}, "disassembler.jobs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "pccov version dev\n") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, key := range []string{"disassembler:", "shell: js", "sources:", "uri_mappings:"} {
		if !strings.Contains(out, key) {
			t.Errorf("config output missing %q:\n%s", key, out)
		}
	}
}

func TestConvertCommandToStdout(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.js"), []byte("f()\n"), 0644); err != nil {
		t.Fatal(err)
	}
	input := filepath.Join(dir, "pccounts.json")
	record := fmt.Sprintf(`[%q, [{"file":"a.js","name":"f","line":10,"totals":{"x":2}}, {"line":10,"counts":{"x":2}}]]`, dir)
	if err := os.WriteFile(input, []byte(record+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "-q", "--no-backfill", "--test-name", "cli", "--totals", input, "-")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := fmt.Sprintf("TN:cli\nSF:%s/a.js\nFN:10,f\nFNDA:2,f\nFNF:1\nFNH:1\nDA:10,2\nLH:1\nLF:1\nend_of_record\n", dir)
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}

	merged := filepath.Join(dir, "merged.info")
	converted := filepath.Join(dir, "converted.info")
	if err := os.WriteFile(converted, []byte(out), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "merge", "-q", "-o", merged, converted, converted); err != nil {
		t.Fatalf("merge: %v", err)
	}
	data, err := os.ReadFile(merged)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "DA:10,4") || !strings.Contains(string(data), "FNDA:4,f") {
		t.Errorf("merged output:\n%s", data)
	}

	summary, err := execute(t, "summary", "-q", merged)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(summary, "a.js") || !strings.Contains(summary, "100.0%") {
		t.Errorf("summary output:\n%s", summary)
	}
}

func TestCommandLoggerLevels(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want logging.LogLevel
	}{
		{"default", nil, logging.LogLevelInfo},
		{"explicit level", []string{"--log-level", "debug"}, logging.LogLevelDebug},
		{"quiet wins", []string{"--log-level", "debug", "-q"}, logging.LogLevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}
			logger, err := commandLogger(cmd)
			if err != nil {
				t.Fatalf("commandLogger: %v", err)
			}
			defer logger.Close()
			if got := logger.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}
