// cmd/dropscrapexter/main_test.go
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/DropScrapexter/internal/config"
	"github.com/valpere/DropScrapexter/internal/product"
	"github.com/valpere/DropScrapexter/internal/storage"
)

const earbudsPage = `<html><head>
<meta property="og:title" content="Wireless Earbuds">
<script type="application/ld+json">{"@type":"Product","offers":{"price":"19.99","priceCurrency":"USD"}}</script>
</head><body><p>Great sound.</p></body></html>`

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// writeConfig writes a config with a SQLite store under dir
func writeConfig(t *testing.T, dir string) (string, string) {
	t.Helper()
	dbPath := filepath.Join(dir, "drafts.db")
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("storage:\n  driver: sqlite3\n  dsn: %s\nlog:\n  level: error\n", dbPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path, dbPath
}

func TestCLIVersion(t *testing.T) {
	version = "test-version"
	buildTime = "2025-06-23"
	gitCommit = "abc123"

	code, out, _ := runCLI("version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "test-version")
	assert.Contains(t, out, "2025-06-23")
	assert.Contains(t, out, "abc123")
}

func TestCLIHelp(t *testing.T) {
	code, out, _ := runCLI("help")
	assert.Equal(t, 0, code)

	commands := []string{"extract", "parse", "import", "list", "export", "serve", "validate", "template", "version", "help", "--narrow"}
	for _, cmd := range commands {
		assert.Contains(t, out, cmd)
	}
}

func TestCLIUnknownAndMissing(t *testing.T) {
	code, _, errOut := runCLI()
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Usage:")

	code, _, errOut = runCLI("scrape")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown command 'scrape'")

	code, _, errOut = runCLI("extract")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "product URL required")

	code, _, errOut = runCLI("list", "--limit", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid --limit")
}

func TestParseArgs(t *testing.T) {
	opts, rest, err := parseArgs([]string{"page.html", "-v", "--config", "c.yaml", "--narrow", "https://x.example.com", "--status", "ready", "--limit", "5", "-f", "csv", "--save"})
	require.NoError(t, err)
	assert.Equal(t, []string{"page.html", "https://x.example.com"}, rest)
	assert.Equal(t, globalOptions{
		configFile: "c.yaml",
		verbose:    true,
		narrow:     true,
		save:       true,
		format:     "csv",
		status:     "ready",
		limit:      5,
	}, opts)

	opts, _, err = parseArgs([]string{"--config=other.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "other.yaml", opts.configFile)

	_, _, err = parseArgs([]string{"--config"})
	assert.Error(t, err)
}

func TestCLITemplateAndValidate(t *testing.T) {
	code, out, _ := runCLI("template")
	require.Equal(t, 0, code)

	cfg, err := config.LoadFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Storage.Driver)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(out), 0644))
	code, out, _ = runCLI("validate", good, "-v")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "Storage driver: sqlite3")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("export:\n  format: pdf\n"), 0644))
	code, _, errOut := runCLI("validate", bad)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Configuration Error")
}

func TestCLIParse(t *testing.T) {
	page := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(page, []byte(earbudsPage), 0644))

	code, out, errOut := runCLI("parse", page, "https://shop.example.com/p/earbuds")
	require.Equal(t, 0, code, errOut)

	var prod product.Product
	require.NoError(t, json.Unmarshal([]byte(out), &prod))
	assert.Equal(t, "Wireless Earbuds", prod.Title)
	assert.Equal(t, 19.99, prod.Price)
	assert.Equal(t, "shop", prod.Source)
	assert.Len(t, prod.ShippingMethods, 2)

	code, _, errOut = runCLI("parse", page, "https://shop.example.com/p/earbuds", "--narrow")
	assert.Equal(t, 6, code)
	assert.Contains(t, errOut, "Unsupported Marketplace")
}

func TestCLIExtractInvalidURL(t *testing.T) {
	code, out, errOut := runCLI("extract", "not a url")
	assert.Equal(t, 6, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Invalid URL")
}

func TestCLIListRequiresStorage(t *testing.T) {
	code, _, errOut := runCLI("list")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Configuration Error")
}

func TestCLIListAndExport(t *testing.T) {
	dir := t.TempDir()
	cfgPath, dbPath := writeConfig(t, dir)

	store, err := storage.Open(context.Background(), storage.Config{Driver: storage.DriverSQLite, DSN: dbPath})
	require.NoError(t, err)
	draft := product.NewDraft(product.Merge(product.Partial{
		Title:     "Desk Lamp",
		Price:     42,
		SourceURL: "https://shop.example.com/lamp",
		Source:    "shop",
	}), time.Now())
	require.NoError(t, store.Save(context.Background(), draft))
	require.NoError(t, store.Close())

	code, out, errOut := runCLI("list", "--config", cfgPath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, draft.ID)
	assert.Contains(t, out, "Desk Lamp")

	code, out, _ = runCLI("list", "--config", cfgPath, "--status", "published")
	require.Equal(t, 0, code)
	assert.NotContains(t, out, draft.ID)

	exportPath := filepath.Join(dir, "drafts.csv")
	code, _, errOut = runCLI("export", exportPath, "--config", cfgPath)
	require.Equal(t, 0, code, errOut)

	f, err := os.Open(exportPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, draft.ID, records[1][0])

	code, out, _ = runCLI("export", "--config", cfgPath, "--format", "json")
	require.Equal(t, 0, code)
	var exported []product.Draft
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "Desk Lamp", exported[0].Title)
}
