package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/partmatch/internal/log"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
	"github.com/asteroid-belt/partmatch/internal/search"
	"github.com/asteroid-belt/partmatch/internal/testutil"
	"github.com/asteroid-belt/partmatch/internal/vector"
)

// isolate points the config at a temp base dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("PARTMATCH_HOME", home)
	for _, key := range []string{
		"PARTMATCH_CATALOG", "PARTMATCH_EMBEDDING_PROVIDER", "PARTMATCH_EMBEDDING_MODEL",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "PARTMATCH_CACHE", "REDIS_ADDR", "REDIS_PASSWORD",
		"PARTMATCH_DEVICE", "PARTMATCH_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("PARTMATCH_TELEMETRY_DISABLED", "true")
	t.Cleanup(func() { _ = log.Close() })
	return home
}

func writeCatalog(t *testing.T, dir string) string {
	t.Helper()
	data, err := json.Marshal(testutil.SampleCatalog())
	require.NoError(t, err)
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// resetFlags restores every flag to its default so runs don't leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func searchJSONResults(t *testing.T, args ...string) []searchResult {
	t.Helper()
	out, err := run(t, append([]string{"search", "--json", "--min-score", "0"}, args...)...)
	require.NoError(t, err)
	var results []searchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	return results
}

func TestRootCmd_Structure(t *testing.T) {
	assert.Equal(t, "partmatch", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	for _, want := range []string{"index", "search", "pairs", "finetune", "evaluate", "version"} {
		assert.Contains(t, names, want)
	}

	var indexNames []string
	for _, cmd := range indexCmd.Commands() {
		indexNames = append(indexNames, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"build", "rebuild", "stats"}, indexNames)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{matcherr.Wrap(matcherr.ErrConfiguration, "bad"), "configuration"},
		{matcherr.Wrap(matcherr.ErrIntegrity, "bad"), "integrity"},
		{fmt.Errorf("search: %w", matcherr.Wrap(matcherr.ErrPrecondition, "bad")), "precondition"},
		{fmt.Errorf("open: %w", os.ErrNotExist), "not_found"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyError(tt.err), tt.err.Error())
	}
}

func TestProgressBar(t *testing.T) {
	bar := NewProgressBar(10, 10)
	bar.Update(3, "encoding")
	out := bar.Render()
	assert.Contains(t, out, "3/10")
	assert.Contains(t, out, "encoding")

	bar.Update(42, "encoding")
	assert.Contains(t, bar.Render(), "10/10")

	assert.Empty(t, NewProgressBar(0, 10).Render())

	var buf bytes.Buffer
	bar.Draw(&buf)
	assert.True(t, strings.HasPrefix(buf.String(), "\r\033[K"))
}

func TestWritePairs(t *testing.T) {
	ps := []models.TrainingPair{
		{TextA: "a", TextB: "b", Label: 0.9, Kind: models.PairPositive},
		{TextA: "c", TextB: "d", Label: 0.1, Kind: models.PairNegativeCategory},
	}
	var buf bytes.Buffer
	require.NoError(t, writePairs(&buf, ps))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var got models.TrainingPair
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, ps[1], got)
}

func TestPrintCandidates(t *testing.T) {
	var buf bytes.Buffer
	printCandidates(&buf, nil, search.DefaultPolicy())
	assert.Contains(t, buf.String(), "No matching products.")

	buf.Reset()
	printCandidates(&buf, []search.Candidate{
		{Product: models.ProductMetadata{Row: 3, Code: "SDS100", Name: "End Seal"}, Score: 0.95, Method: search.MethodSemanticCode},
		{Product: models.ProductMetadata{Row: 4, Code: "SDS110", Name: "End Seal"}, Score: 0.6, Method: search.MethodSemantic},
	}, search.DefaultPolicy())
	out := buf.String()
	assert.Contains(t, out, "SDS100")
	assert.Contains(t, out, "[code]")
	assert.Contains(t, out, "row 3, auto")
	assert.Contains(t, out, "row 4, manual")
}

func TestVersionCmd_NeedsNoConfig(t *testing.T) {
	t.Setenv("PARTMATCH_HOME", t.TempDir())
	out, err := run(t, "version", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
}

func TestIndexBuild_RequiresCatalog(t *testing.T) {
	isolate(t)
	_, err := run(t, "index", "build")
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)
}

func TestSearch_WithoutIndex(t *testing.T) {
	isolate(t)
	_, err := run(t, "search", "end seal")
	assert.ErrorIs(t, err, matcherr.ErrIntegrity)
}

func TestIndexAndSearch(t *testing.T) {
	isolate(t)
	catalogPath := writeCatalog(t, t.TempDir())

	out, err := run(t, "index", "build", catalogPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 14 products")

	_, err = run(t, "index", "build", catalogPath)
	assert.ErrorIs(t, err, matcherr.ErrPrecondition)

	results := searchJSONResults(t, "-k", "3", "need", "SDS100", "end", "seal")
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 3)
	assert.Equal(t, "SDS100", results[0].Product.Code)
	assert.Equal(t, search.MethodSemanticCode, results[0].Method)
	assert.NotEmpty(t, results[0].Decision)

	out, err = run(t, "index", "stats", "--json")
	require.NoError(t, err)
	var stats struct {
		State string `json:"state"`
		Rows  int    `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, vector.StateReady.String(), stats.State)
	assert.Equal(t, 14, stats.Rows)

	out, err = run(t, "index", "rebuild", catalogPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 14 products")

	_, err = run(t, "search", "   ")
	assert.ErrorIs(t, err, matcherr.ErrPrecondition)
}

func TestEvaluateCmd(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	catalogPath := writeCatalog(t, dir)
	_, err := run(t, "index", "build", catalogPath)
	require.NoError(t, err)

	queriesPath := filepath.Join(dir, "queries.json")
	require.NoError(t, os.WriteFile(queriesPath, []byte(`[
		{"code": "SDS100", "text": "need SDS100 end seal"},
		{"code": "BLD060", "text": "Rakel Edelstahl 60x0.15"}
	]`), 0644))

	out, err := run(t, "evaluate", queriesPath, "--json")
	require.NoError(t, err)
	var report search.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 5, report.TopK)
	assert.InDelta(t, 1.0, report.HitAt1, 1e-9)
	assert.InDelta(t, 1.0, report.MRR, 1e-9)
}

func TestPairsCmd(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	catalogPath := writeCatalog(t, dir)
	outPath := filepath.Join(dir, "pairs.jsonl")

	_, err := run(t, "pairs", catalogPath, "-o", outPath)
	require.NoError(t, err)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var n int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var p models.TrainingPair
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &p))
		assert.GreaterOrEqual(t, p.Label, float32(0))
		assert.LessOrEqual(t, p.Label, float32(1))
		n++
	}
	require.NoError(t, scanner.Err())
	assert.Positive(t, n)
}

func TestFinetuneRequiresRebuild(t *testing.T) {
	home := isolate(t)
	catalogPath := writeCatalog(t, t.TempDir())

	_, err := run(t, "index", "build", catalogPath)
	require.NoError(t, err)

	out, err := run(t, "finetune", catalogPath, "--epochs", "1", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "index rebuild")
	assert.FileExists(t, filepath.Join(home, "model", "manifest.json"))

	// The published index was encoded with the base model.
	_, err = run(t, "search", "end seal")
	assert.ErrorIs(t, err, matcherr.ErrIntegrity)

	_, err = run(t, "index", "rebuild", catalogPath)
	require.NoError(t, err)

	results := searchJSONResults(t, "Rakel", "Edelstahl", "60x0.15")
	require.NotEmpty(t, results)
}

func TestFinetune_InvalidDevice(t *testing.T) {
	isolate(t)
	catalogPath := writeCatalog(t, t.TempDir())
	_, err := run(t, "finetune", catalogPath, "--device", "tpu")
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)
}
