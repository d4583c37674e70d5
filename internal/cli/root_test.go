package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LinkScanner/internal/config"
	"LinkScanner/internal/domain"
	"LinkScanner/internal/engine"
	"LinkScanner/internal/infrastructure/storage"
	"LinkScanner/internal/report"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LINK_SCANNER_CONFIG", "LINK_SCANNER_HISTORY_DB", "GOOGLE_CLOUD_PROJECT",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(key, "")
	}
}

func writeAnswers(t *testing.T, dir string, records ...domain.SourceRecord) string {
	t.Helper()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		require.NoError(t, enc.Encode(rec))
	}
	path := filepath.Join(dir, "answers.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func readReport(t *testing.T, dir, branch string) []report.Entry {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "out", "results-*-"+branch+"-00000-of-00001.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1, branch)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	entries, err := report.Decode(data)
	require.NoError(t, err)
	return entries
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(http.ResponseWriter, *http.Request) {})
	mux.HandleFunc("/missing", http.NotFound)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRootCommandEndToEnd(t *testing.T) {
	isolateEnv(t)

	site := newSite(t)
	dir := t.TempDir()
	input := writeAnswers(t, dir,
		domain.SourceRecord{Title: "A", ID: 1, Score: 10, Body: fmt.Sprintf(
			`<a href="%s/ok">ok</a> <a href="%s/missing">gone</a> <a href="https://stackoverflow.com/q/1">so</a>`, site.URL, site.URL)},
		domain.SourceRecord{Title: "B", ID: 2, Score: 5, Body: fmt.Sprintf(`<a href="%s/ok">ok</a>`, site.URL)},
		domain.SourceRecord{Title: "C", ID: 3, Score: 99, Body: "no links here"},
	)

	for _, runnerName := range []string{"direct", "sharded"} {
		t.Run(runnerName, func(t *testing.T) {
			out := t.TempDir()
			stdout, _, err := execute(t,
				"--output", filepath.Join(out, "out", "results"),
				"--input", input,
				"--runner", runnerName,
				"--num_answers", "10",
			)
			require.NoError(t, err)
			assert.Contains(t, stdout, "checked 2 urls, 1 failed")

			all := readReport(t, out, "all_responses")
			require.Len(t, all, 2)
			assert.Equal(t, site.URL+"/ok", all[0].URL)
			assert.Equal(t, int64(15), all[0].ReferenceScoreSum)
			assert.Equal(t, 2, all[0].ReferenceCount)
			require.NotNil(t, all[0].Status)
			assert.Equal(t, 200, *all[0].Status)
			assert.Nil(t, all[0].ErrorKind)

			failures := readReport(t, out, "failures")
			require.Len(t, failures, 1)
			assert.Equal(t, site.URL+"/missing", failures[0].URL)
			require.NotNil(t, failures[0].ErrorKind)
			assert.Equal(t, domain.KindHTTPStatus, *failures[0].ErrorKind)
			assert.Equal(t, "https://stackoverflow.com/a/1", failures[0].References[0].AnswerURL)

			for _, entry := range all {
				assert.False(t, strings.Contains(entry.URL, "stackoverflow.com"))
			}
		})
	}
}

func TestRootCommandRecordsHistory(t *testing.T) {
	isolateEnv(t)

	site := newSite(t)
	dir := t.TempDir()
	input := writeAnswers(t, dir,
		domain.SourceRecord{ID: 7, Score: 3, Body: fmt.Sprintf(`<a href="%s/missing">x</a>`, site.URL)})
	db := filepath.Join(dir, "history.db")

	_, _, err := execute(t, "--output", filepath.Join(dir, "out", "results"), "--input", input, "--history-db", db)
	require.NoError(t, err)

	stdout, _, err := execute(t, "history", "--history-db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "RUN")
	assert.Contains(t, stdout, string(domain.RunWritten))
	assert.Contains(t, stdout, filepath.Join(dir, "out", "results"))

	repo, err := storage.OpenSQLite(context.Background(), db)
	require.NoError(t, err)
	runs, err := repo.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.Len(t, runs, 1)

	stdout, _, err = execute(t, "history", "--history-db", db, "--run", runs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "KIND")
	assert.Regexp(t, `HTTPStatusError\s+1`, stdout)
	assert.NotContains(t, stdout, "DNSError")
}

func TestHistoryRequiresDatabase(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history database")
}

func TestRootCommandRequiresOutput(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "--input", "answers.jsonl")
	assert.ErrorIs(t, err, config.ErrMissingOutput)
}

func TestRootCommandRejectsUnknownRunner(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	input := writeAnswers(t, dir)
	_, _, err := execute(t, "--output", filepath.Join(dir, "out"), "--input", input, "--runner", "DataflowRunner")
	assert.ErrorIs(t, err, engine.ErrUnknownEngine)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  num_answers: 500
runner:
  name: sharded
  num_workers: 8
output:
  prefix: from-file
`), 0o600))

	cmd := NewRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--num_answers", "7"}))

	flags := cmd.Flags()
	configPath, err := flags.GetString("config")
	require.NoError(t, err)
	require.Equal(t, path, configPath)

	cfg, err := loadConfig(cmd, &rootFlags{configPath: path, numAnswers: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Source.NumAnswers)
	assert.Equal(t, "sharded", cfg.Runner.Name, "unchanged flags keep file values")
	assert.Equal(t, 8, cfg.Runner.NumWorkers)
	assert.Equal(t, "from-file", cfg.Output.Prefix)
}
