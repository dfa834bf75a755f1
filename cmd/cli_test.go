package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fastConfig = `[schedule]
delay_min = "20ms"
delay_max = "30ms"

[browser]
latency = "1ms"

[log]
level = "error"
`

func TestItemsAddListRemove(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "items", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "no work items in")

	stdout, _, err = executeCLI(t, home,
		"items", "add",
		"--id", "517",
		"--url", "https://x.test/fund/517",
		"--isin", "SE0000000001",
		"--name", "Global Index",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Saved work item 517")

	stdout, _, err = executeCLI(t, home, "items", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "517\tSE0000000001\tGlobal Index\thttps://x.test/fund/517")

	stdout, _, err = executeCLI(t, home, "items", "remove", "517")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Removed work item 517")

	stdout, _, err = executeCLI(t, home, "items", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "no work items in")
}

func TestItemsAddRequiresURLFlag(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "items", "add", "--id", "517")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"url\" not set")
}

func TestItemsRemoveUnknownItem(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "items", "remove", "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "work item not found")
}

func TestPlanWithoutItemsFails(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "plan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no work available")
}

func TestPlanFormats(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeItemsFixture(home))

	stdout, _, err := executeCLI(t, home, "plan", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, stdout, "items: 2")
	assert.Contains(t, stdout, "517\tGlobal Index")
	assert.Contains(t, stdout, "select_chart_period@+")

	stdout, _, err = executeCLI(t, home, "plan", "--seed", "7", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "total_duration:")
	assert.Contains(t, stdout, "name: Nordic Small Cap")

	stdout, _, err = executeCLI(t, home, "plan", "--seed", "7", "--format", "json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"ref\": \"518\"")
}

func TestPlanSeedIsDeterministic(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeItemsFixture(home))

	type plan struct {
		TotalDuration time.Duration `json:"total_duration"`
		Items         []struct {
			Duration       time.Duration `json:"duration"`
			InterItemDelay time.Duration `json:"inter_item_delay"`
		} `json:"items"`
	}

	decode := func() plan {
		stdout, _, err := executeCLI(t, home, "plan", "--seed", "42", "--format", "json")
		require.NoError(t, err)
		var p plan
		require.NoError(t, json.Unmarshal([]byte(stdout), &p))
		return p
	}

	first := decode()
	second := decode()
	require.Len(t, first.Items, 2)
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first.Items[0].InterItemDelay, 20*time.Millisecond)
	assert.LessOrEqual(t, first.Items[0].InterItemDelay, 30*time.Millisecond)
}

func TestPlanRejectsUnknownFormat(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeItemsFixture(home))

	_, _, err := executeCLI(t, home, "plan", "--format", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format \"csv\"")
}

func TestCrawlVisitRecordsEveryItem(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeItemsFixture(home))

	stdout, stderr, err := executeCLI(t, home, "crawl", "visit", "--plain", "--seed", "3")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Fund Page Visits")
	assert.Contains(t, stdout, "(finished)")
	assert.Contains(t, stdout, "2/2")

	stdout, _, err = executeCLI(t, home, "visits", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "\t518\t")
	assert.Contains(t, lines[1], "\t517\t")

	stdout, _, err = executeCLI(t, home, "visits", "list", "--json", "--limit", "1")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"Ref\": \"518\"")
}

func TestCrawlVisitWithoutItemsFails(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home, fastConfig))

	_, _, err := executeCLI(t, home, "crawl", "visit", "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no work available")
}

func TestCrawlBatchesLoadsExpectedBatches(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home, fastConfig))

	stdout, stderr, err := executeCLI(t, home, "crawl", "batches", "--plain", "--expected-items", "5", "--batch-size", "2")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Listing Batches")
	assert.Contains(t, stdout, "3/3")
}

func TestCrawlBatchesRequiresExpectedItems(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "crawl", "batches", "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"expected-items\" not set")
}

func TestVisitsListEmpty(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "visits", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "no visits recorded")
}

func TestInvalidConfigSurfacesOnEveryCommand(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home, "[browser]\ndriver = \"firefox\"\n"))

	_, _, err := executeCLI(t, home, "items", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver \"firefox\"")
}

func TestBodyLimitMustBePositive(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home, "[browser]\nbody_limit = 0\n"))

	_, _, err := executeCLI(t, home, "items", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser.body_limit")
}

func TestVersionPrintsBuildVersion(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestRemovedCommandIsUnknown(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "account")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command \"account\"")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfigFixture(home, content string) error {
	configDir := filepath.Join(home, ".fundcrawl")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o600)
}

func writeItemsFixture(home string) error {
	if err := writeConfigFixture(home, fastConfig); err != nil {
		return err
	}

	items := `version = 1

[[items]]
orderbook_id = "517"
isin = "SE0000000001"
name = "Global Index"
url = "https://x.test/fund/517"

[[items]]
orderbook_id = "518"
name = "Nordic Small Cap"
url = "https://x.test/fund/518"
`

	return os.WriteFile(filepath.Join(home, ".fundcrawl", "items.toml"), []byte(items), 0o600)
}
