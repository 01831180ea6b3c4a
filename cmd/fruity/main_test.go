package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fruity/internal/catalog"
	"fruity/internal/config"
	"fruity/internal/remote"
	"fruity/internal/testutil"
	"fruity/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `sync:
  request_timeout: 2s
  retry_delay: 10ms
  max_retries: 1
mutation:
  timeout: 2s
import:
  concurrency: 2
  rate_per_second: 0
logging:
  level: error
`

// cliEnv points the CLI at a fake backend with a throwaway preference store.
type cliEnv struct {
	fb     *testutil.FakeBackend
	dir    string
	config string
}

func newCLIEnv(t *testing.T, seed ...types.LogEntry) *cliEnv {
	t.Helper()
	fb := testutil.NewFakeBackend(seed...)
	t.Cleanup(fb.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))

	t.Setenv(config.EnvAPIURL, fb.URL())
	t.Setenv(config.EnvPrefsDB, filepath.Join(dir, "prefs.db"))
	t.Setenv(config.EnvRegion, "")
	t.Setenv(config.EnvLang, "")
	t.Setenv(config.EnvLogLevel, "")
	return &cliEnv{fb: fb, dir: dir, config: path}
}

// run executes the root command with args and returns everything written.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	configPath, verbose, apiURL, region, lang = "", false, "", "", ""
	timeout = 2 * time.Minute
	addRating, addDate, addOrigin, addStore, rmYes = 0, "", "", "", false
	historyMinRating = 0
	topAll, topSort, topWeighted = false, "best-now", false
	reportRaw, reportWeighted = false, false
	suggestLimit = 5
	importDryRun = false
}

func today() string { return types.FormatDate(time.Now()) }

func cliSeed() []types.LogEntry {
	return []types.LogEntry{
		{Fruit: "Pomme", Origin: "Île d'Orléans", Store: "Marché Jean-Talon", Rating: 5, Date: today(), UserRegion: "Quebec"},
		{Fruit: "Fraise", Origin: "Québec", Rating: 4, Date: today(), UserRegion: "Quebec"},
		{Fruit: "Banana", Origin: "Ecuador", Rating: 2, Date: today(), UserRegion: "Quebec"},
		{Fruit: "Mango", Origin: "Mexico", Rating: 5, Date: today(), UserRegion: "Ontario"},
	}
}

func TestSyncPrintsTransitions(t *testing.T) {
	env := newCLIEnv(t, cliSeed()...)

	out, err := env.run(t, "", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "→ loading")
	assert.Contains(t, out, "→ success")
	assert.Contains(t, out, "4 logs from "+env.fb.URL())
	assert.Equal(t, 1, env.fb.Requests(http.MethodGet))
}

func TestSyncWakingBackend(t *testing.T) {
	env := newCLIEnv(t, cliSeed()...)
	env.fb.FailNext(http.MethodGet, testutil.Fault{Status: http.StatusServiceUnavailable})

	out, err := env.run(t, "", "--lang", "en", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "→ waking (Server is waking up")
	assert.Contains(t, out, "→ success")
	assert.Equal(t, 2, env.fb.Requests(http.MethodGet))
}

func TestSyncWrongURLIsMisconfigured(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "--api-url", env.fb.URL()+"/nope", "sync")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrMisconfigured), "got %v", err)
	assert.Contains(t, err.Error(), "404")
}

func TestSyncRejectsBadFlags(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "--api-url", "ftp://example.com", "sync")
	assert.ErrorContains(t, err, "--api-url")

	_, err = env.run(t, "", "--lang", "de", "sync")
	assert.ErrorContains(t, err, "--lang")
	assert.Zero(t, env.fb.Requests(http.MethodGet))
}

func TestAddCreatesAndReloads(t *testing.T) {
	env := newCLIEnv(t, cliSeed()...)

	out, err := env.run(t, "", "add", "Poire", "--rating", "4", "--origin", "Niagara", "--store", "IGA")
	require.NoError(t, err)
	assert.Contains(t, out, "Enregistré.")
	assert.Contains(t, out, "★★★★☆")
	assert.Contains(t, out, "5 notes")

	logs := env.fb.Logs()
	require.Len(t, logs, 5)
	var got types.LogEntry
	for _, l := range logs {
		if l.Fruit == "Poire" {
			got = l
		}
	}
	assert.Equal(t, "Niagara", got.Origin)
	assert.Equal(t, "IGA", got.Store)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, today(), got.Date)
	assert.Equal(t, "Quebec", got.UserRegion)
	assert.Equal(t, 1, env.fb.Requests(http.MethodPost))
}

func TestAddValidation(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "add", "Pompier", "--rating", "4")
	assert.True(t, errors.Is(err, catalog.ErrUnknownFruit), "got %v", err)

	// English names are only accepted in English.
	_, err = env.run(t, "", "add", "Pear", "--rating", "4")
	assert.True(t, errors.Is(err, catalog.ErrUnknownFruit), "got %v", err)

	_, err = env.run(t, "", "add", "Poire", "--rating", "9")
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "rating", verr.Field)

	_, err = env.run(t, "", "add", "Poire", "--rating", "3", "--date", "15/06/2024")
	assert.Error(t, err)

	assert.Zero(t, env.fb.Requests(http.MethodPost))
}

func TestAddBackendFailure(t *testing.T) {
	env := newCLIEnv(t)
	env.fb.FailNext(http.MethodPost, testutil.Fault{Status: http.StatusInternalServerError})

	_, err := env.run(t, "", "--lang", "en", "add", "Pear", "--rating", "3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrConnectivity), "got %v", err)
	assert.Equal(t, 1, env.fb.Requests(http.MethodPost))
	assert.Empty(t, env.fb.Logs())
}

func TestRemove(t *testing.T) {
	env := newCLIEnv(t, cliSeed()...)

	out, err := env.run(t, "n\n", "rm", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Supprimer cette note? (o/n)")
	assert.Contains(t, out, "cancelled")
	assert.Zero(t, env.fb.Requests(http.MethodDelete))

	out, err = env.run(t, "o\n", "rm", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Supprimé. #1")
	assert.Len(t, env.fb.Logs(), 3)

	out, err = env.run(t, "", "--lang", "en", "rm", "--yes", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted. #2")
	assert.NotContains(t, out, "(y/n)")
	assert.Len(t, env.fb.Logs(), 2)
}

func TestHistory(t *testing.T) {
	env := newCLIEnv(t, cliSeed()...)

	out, err := env.run(t, "", "history", "jean")
	require.NoError(t, err)
	assert.Contains(t, out, "Pomme")
	assert.Contains(t, out, "Marché Jean-Talon")
	assert.NotContains(t, out, "Fraise")
	assert.Contains(t, out, "1 notes")

	out, err = env.run(t, "", "--lang", "en", "history", "--min-rating", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Apple")
	assert.Contains(t, out, "Strawberry")
	assert.NotContains(t, out, "Banana")
	assert.NotContains(t, out, "Mango", "other regions are excluded")

	out, err = env.run(t, "", "history", "durian")
	require.NoError(t, err)
	assert.NotContains(t, out, "│")
}

func TestTop(t *testing.T) {
	env := newCLIEnv(t, cliSeed()...)

	out, err := env.run(t, "", "--lang", "en", "top")
	require.NoError(t, err)
	assert.Contains(t, out, "Best in Quebec now.")
	assert.Contains(t, out, "Apple")
	assert.Contains(t, out, "Strawberry")
	assert.NotContains(t, out, "Banana", "2.00 is below the top pick threshold")

	out, err = env.run(t, "", "--lang", "en", "top", "--all", "--sort", "alphabetical")
	require.NoError(t, err)
	apple := strings.Index(out, "Apple")
	banana := strings.Index(out, "Banana")
	strawberry := strings.Index(out, "Strawberry")
	require.True(t, apple >= 0 && banana >= 0 && strawberry >= 0, out)
	assert.Less(t, apple, banana)
	assert.Less(t, banana, strawberry)

	out, err = env.run(t, "", "--lang", "en", "--region", "Ontario", "top")
	require.NoError(t, err)
	assert.Contains(t, out, "Best in Ontario now.")
	assert.Contains(t, out, "Mango")
	assert.NotContains(t, out, "Apple")

	_, err = env.run(t, "", "top", "--sort", "loudest")
	assert.Error(t, err)
}

func TestTopEmptyRegion(t *testing.T) {
	env := newCLIEnv(t, cliSeed()...)

	out, err := env.run(t, "", "--lang", "en", "--region", "Yukon", "top")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing rated 3.5 or better this month yet.")
}

func TestTrend(t *testing.T) {
	env := newCLIEnv(t, cliSeed()...)

	out, err := env.run(t, "", "--lang", "en", "trend", "pomme")
	require.NoError(t, err)
	month := time.Now().Month().String()[:3]
	assert.Contains(t, out, month)
	assert.Contains(t, out, "5.00")

	_, err = env.run(t, "", "trend", "Mangue")
	assert.ErrorContains(t, err, "no logs")
}

func TestReportRaw(t *testing.T) {
	env := newCLIEnv(t, cliSeed()...)

	out, err := env.run(t, "", "--lang", "en", "report", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "# Fruit report for Quebec")
	assert.Contains(t, out, "1. **Apple** 5.00 (1)")
	assert.Contains(t, out, "| Banana |")
}

func TestSuggest(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "--lang", "en", "suggest", "ber", "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, "Blueberry\nRaspberry\n", out)

	out, err = env.run(t, "", "suggest", "fra")
	require.NoError(t, err)
	assert.Equal(t, "Framboise\nFraise\n", out)
	assert.Zero(t, env.fb.Requests(http.MethodGet), "suggestions never touch the backend")
}

func TestImportExportRoundTrip(t *testing.T) {
	env := newCLIEnv(t)

	csvPath := filepath.Join(env.dir, "in.csv")
	data := "Date,Fruit,Origin,Rating,Region,Store\n" +
		"2024-06-02,Pomme,\"Île d'Orléans, QC\",5,Quebec,Marché Jean-Talon\n" +
		"2024-06-03,Fraise,Québec,4,\n" +
		"2024-06-04,Pompier,Nowhere,3,Quebec\n" +
		"not-a-date,Poire,Niagara,4,Ontario\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(data), 0o644))

	out, err := env.run(t, "", "import", "--dry-run", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows valid, 2 skipped")
	assert.Zero(t, env.fb.Requests(http.MethodPost))

	out, err = env.run(t, "", "import", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 created, 0 failed, 2 skipped")
	assert.Equal(t, 2, env.fb.Requests(http.MethodPost))
	assert.Len(t, env.fb.Logs(), 2)

	exportPath := filepath.Join(env.dir, "out.csv")
	out, err = env.run(t, "", "export", exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 logs written to "+exportPath)

	exported, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "Date,Fruit,Origin,Rating,Region,Store\n")
	assert.Contains(t, string(exported), "2024-06-02,Pomme,\"Île d'Orléans, QC\",5,Quebec,Marché Jean-Talon\n")
	assert.Contains(t, string(exported), "2024-06-03,Fraise,Québec,4,Quebec,\n")
}

func TestImportReportsFailures(t *testing.T) {
	env := newCLIEnv(t)

	csvPath := filepath.Join(env.dir, "in.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("2024-06-02,Pomme,QC,5\n"), 0o644))
	env.fb.FailNext(http.MethodPost, testutil.Fault{Status: http.StatusInternalServerError})

	out, err := env.run(t, "", "import", csvPath)
	assert.ErrorContains(t, err, "1 of 1 rows were not imported")
	assert.Contains(t, out, "0 created, 1 failed")
	assert.Equal(t, 1, env.fb.Requests(http.MethodPost), "rows are never retried")
	assert.Zero(t, env.fb.Requests(http.MethodGet))
}

func TestExportStdout(t *testing.T) {
	env := newCLIEnv(t, cliSeed()...)

	out, err := env.run(t, "", "export")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, "Date,Fruit,Origin,Rating,Region,Store", lines[0])
}

func TestConfigCommands(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "config", "set-url", env.fb.URL()+"//")
	require.NoError(t, err)
	assert.Equal(t, "fruity_api_url = "+env.fb.URL()+"\n", out)

	_, err = env.run(t, "", "config", "set-url", "not a url")
	assert.Error(t, err)

	out, err = env.run(t, "", "config", "set-region", "Ontario")
	require.NoError(t, err)
	assert.Contains(t, out, "Ontario")

	_, err = env.run(t, "", "config", "set-lang", "de")
	assert.Error(t, err)

	out, err = env.run(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# config")
	assert.Contains(t, out, "retry_delay: 10ms")
	assert.Contains(t, out, "Ontario (saved)")
	assert.Contains(t, out, "fr (default)")

	// The saved region is picked up by later commands.
	env.fb.Close()
	fb := testutil.NewFakeBackend(cliSeed()...)
	t.Cleanup(fb.Close)
	out, err = env.run(t, "", "--api-url", fb.URL(), "--lang", "en", "top")
	require.NoError(t, err)
	assert.Contains(t, out, "Best in Ontario now.")
}

func TestInvalidConfigFile(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(env.config, []byte("import:\n  concurrency: 0\n"), 0o644))

	_, err := env.run(t, "", "sync")
	assert.ErrorContains(t, err, "import.concurrency")
}

func TestBuildLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.log")
	l, err := buildLogger(config.LoggingConfig{Level: "warn", Format: "json", File: path}, false)
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])

	l, err = buildLogger(config.LoggingConfig{Level: "error", File: path}, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1), "verbose forces debug")

	_, err = buildLogger(config.LoggingConfig{Level: "info", Format: "xml"}, false)
	assert.Error(t, err)
	_, err = buildLogger(config.LoggingConfig{Level: "loud"}, false)
	assert.Error(t, err)
}

// failingCloser accepts writes and fails on Close.
type failingCloser struct {
	bytes.Buffer
	closed bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("disk full")
}

func TestWriteAndCloseReportsCloseError(t *testing.T) {
	wc := &failingCloser{}
	err := writeAndClose(wc, []types.LogEntry{{ID: "1", Date: "2024-06-02", Fruit: "Pomme", Rating: 5}})
	assert.ErrorContains(t, err, "disk full")
	assert.True(t, wc.closed)
	assert.Contains(t, wc.String(), "2024-06-02,Pomme")
}
