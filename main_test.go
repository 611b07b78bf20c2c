package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/slav123/ews-mtgs-conformance/internal/scenario"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "text", level: "debug", format: "text"},
		{name: "json", level: "warn", format: "json"},
		{name: "bad level", level: "loud", format: "text", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := logrus.New()
			err := setupLogger(logger, tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			want, err := logrus.ParseLevel(tt.level)
			require.NoError(t, err)
			assert.Equal(t, want, logger.GetLevel())
		})
	}
}

func TestList(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run(context.Background(), []string{"ews-mtgs-conformance", "list"}))
	for _, sc := range scenario.All() {
		assert.Contains(t, out.String(), sc.ID)
	}
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	printReport(&out, scenario.Report{
		Passed: 1,
		Failed: 1,
		Scenarios: []scenario.Result{
			{Scenario: "MSOXWSMTGS_S03_TC01_CopySingleCalendar", Passed: true, Elapsed: "12ms"},
			{Scenario: "MSOXWSMTGS_S04_TC01_MoveSingleCalendar", Error: "boom", Elapsed: "3ms"},
		},
	})

	assert.Contains(t, out.String(), "PASS  MSOXWSMTGS_S03_TC01_CopySingleCalendar")
	assert.Contains(t, out.String(), "FAIL  MSOXWSMTGS_S04_TC01_MoveSingleCalendar")
	assert.Contains(t, out.String(), "boom")
	assert.Contains(t, out.String(), "1 passed, 1 failed")
}

func TestRunWritesReport(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close()

	t.Setenv("EWS_URL", srv.URL)
	t.Setenv("ORGANIZER_NAME", "organizer")
	t.Setenv("ORGANIZER_PASSWORD", "secret")
	t.Setenv("ATTENDEE_NAME", "attendee")
	t.Setenv("ATTENDEE_PASSWORD", "secret")
	t.Setenv("DOMAIN", "contoso.com")

	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	envFile := filepath.Join(dir, "ews.env")
	require.NoError(t, os.WriteFile(envFile, []byte("WAIT_TIME=1\nRETRY_COUNT=1\n"), 0o600))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err := app.Run(context.Background(), []string{
		"ews-mtgs-conformance", "--log-level", "error",
		"run", "--scenario", "S03_TC01", "--env-file", envFile, "--report", path,
	})
	require.Error(t, err)
	assert.Contains(t, out.String(), "FAIL")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"failed": 1`)
}
