// cmd/dropscrapexter/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/valpere/DropScrapexter/internal/config"
	"github.com/valpere/DropScrapexter/internal/errors"
	"github.com/valpere/DropScrapexter/internal/importer"
	"github.com/valpere/DropScrapexter/internal/output"
	"github.com/valpere/DropScrapexter/internal/product"
	"github.com/valpere/DropScrapexter/internal/storage"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// globalOptions are the flags accepted by every command
type globalOptions struct {
	configFile string
	verbose    bool
	narrow     bool
	save       bool
	format     string
	status     string
	limit      int
}

// parseArgs separates flags from positional arguments
func parseArgs(args []string) (globalOptions, []string, error) {
	var opts globalOptions
	var positional []string

	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("flag %s requires a value", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		var err error
		switch arg {
		case "-v", "--verbose":
			opts.verbose = true
		case "--narrow":
			opts.narrow = true
		case "--save":
			opts.save = true
		case "-c", "--config":
			opts.configFile, err = value(&i, arg)
		case "-f", "--format":
			opts.format, err = value(&i, arg)
		case "--status":
			opts.status, err = value(&i, arg)
		case "--limit":
			var raw string
			if raw, err = value(&i, arg); err == nil {
				opts.limit, err = strconv.Atoi(raw)
				if err != nil || opts.limit < 0 {
					err = fmt.Errorf("invalid --limit %q", raw)
				}
			}
		default:
			if strings.HasPrefix(arg, "--config=") {
				opts.configFile = strings.TrimPrefix(arg, "--config=")
			} else {
				positional = append(positional, arg)
			}
		}
		if err != nil {
			return opts, nil, err
		}
	}
	return opts, positional, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	opts, rest, err := parseArgs(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	errorService := errors.NewService().WithVerbose(opts.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "extract":
		if len(rest) < 1 {
			return usageError(stderr, "product URL required", "dropscrapexter extract <url> [--narrow] [--save]")
		}
		err = extractCommand(ctx, opts, rest[0], stdout)
	case "parse":
		if len(rest) < 2 {
			return usageError(stderr, "HTML file and page URL required", "dropscrapexter parse <page.html> <url> [--narrow]")
		}
		err = parseCommand(ctx, opts, rest[0], rest[1], stdout)
	case "import":
		if len(rest) < 1 {
			return usageError(stderr, "URL list file required", "dropscrapexter import <urls.txt|-> [--narrow]")
		}
		err = importCommand(ctx, opts, rest[0], stdout)
	case "list":
		err = listCommand(ctx, opts, stdout)
	case "export":
		file := ""
		if len(rest) > 0 {
			file = rest[0]
		}
		err = exportCommand(ctx, opts, file, stdout)
	case "serve":
		err = serveCommand(ctx, opts)
	case "validate":
		if len(rest) < 1 {
			return usageError(stderr, "config file required", "dropscrapexter validate <config.yaml>")
		}
		err = validateCommand(rest[0], opts.verbose, stdout)
	case "template":
		err = config.SaveToWriter(config.GenerateTemplate(), stdout)
	case "version", "--version":
		printVersion(stdout)
	case "help", "--help", "-h":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Error: unknown command '%s'\n", command)
		printUsage(stderr)
		return 1
	}

	if err != nil {
		fmt.Fprint(stderr, errorService.FormatErrorForCLI(err))
		return errorService.GetExitCode(err)
	}
	return 0
}

func usageError(w io.Writer, message, usage string) int {
	fmt.Fprintf(w, "Error: %s\n", message)
	fmt.Fprintf(w, "Usage: %s\n", usage)
	return 1
}

func writeProduct(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func extractCommand(ctx context.Context, opts globalOptions, rawURL string, stdout io.Writer) error {
	mode := storeNone
	if opts.save {
		mode = storeRequired
	}
	a, err := newApp(ctx, opts, mode)
	if err != nil {
		return err
	}
	defer a.Close()

	prod, err := a.pipeline(opts.narrow).Import(ctx, rawURL)
	if err != nil {
		return err
	}
	if !opts.save {
		return writeProduct(stdout, prod)
	}

	draft := product.NewDraft(prod, time.Now())
	if err := a.store.Save(ctx, draft); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return writeProduct(stdout, draft)
}

func parseCommand(ctx context.Context, opts globalOptions, file, rawURL string, stdout io.Writer) error {
	html, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	a, err := newApp(ctx, opts, storeNone)
	if err != nil {
		return err
	}
	defer a.Close()

	prod, err := a.pipeline(opts.narrow).Extract(ctx, string(html), rawURL)
	if err != nil {
		return err
	}
	return writeProduct(stdout, prod)
}

func importCommand(ctx context.Context, opts globalOptions, file string, stdout io.Writer) error {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return fmt.Errorf("failed to read URL list: %w", err)
	}

	a, err := newApp(ctx, opts, storeOptional)
	if err != nil {
		return err
	}
	defer a.Close()

	urls := importer.ParseURLList(string(data))
	results, err := a.importer(opts.narrow).ImportBatch(ctx, urls)
	succeeded := 0
	for _, r := range results {
		if r.Success() {
			succeeded++
			fmt.Fprintf(stdout, "✓ %s -> %s %q\n", r.URL, r.Draft.ID, r.Draft.Title)
		} else {
			fmt.Fprintf(stdout, "✗ %s: %s\n", r.URL, r.Message())
		}
	}
	if len(results) > 0 {
		fmt.Fprintf(stdout, "Imported %d of %d products\n", succeeded, len(results))
	}
	return err
}

func listOptions(opts globalOptions) (storage.ListOptions, error) {
	list := storage.ListOptions{Limit: opts.limit}
	if opts.status != "" {
		status, err := product.ParseStatus(opts.status)
		if err != nil {
			return list, err
		}
		list.Status = status
	}
	return list, nil
}

func listCommand(ctx context.Context, opts globalOptions, stdout io.Writer) error {
	listOpts, err := listOptions(opts)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, opts, storeRequired)
	if err != nil {
		return err
	}
	defer a.Close()

	drafts, err := a.store.List(ctx, listOpts)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRICE\tSOURCE\tTITLE")
	for _, d := range drafts {
		fmt.Fprintf(tw, "%s\t%s\t%.2f %s\t%s\t%s\n", d.ID, d.Status, d.Price, d.Currency, d.Source, d.Title)
	}
	return tw.Flush()
}

func exportCommand(ctx context.Context, opts globalOptions, file string, stdout io.Writer) error {
	listOpts, err := listOptions(opts)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, opts, storeRequired)
	if err != nil {
		return err
	}
	defer a.Close()

	exportCfg := a.cfg.Export
	if file != "" {
		exportCfg.File = file
		exportCfg.Format = ""
	}
	if opts.format != "" {
		exportCfg.Format = output.OutputFormat(opts.format)
	}
	manager, err := output.NewManager(exportCfg, stdout)
	if err != nil {
		return err
	}

	drafts, err := a.store.List(ctx, listOpts)
	if err != nil {
		return err
	}
	if err := manager.Write(drafts); err != nil {
		return err
	}
	if exportCfg.File != "" && exportCfg.File != "-" {
		a.logger.Infof("exported %d drafts to %s", len(drafts), exportCfg.File)
	}
	return nil
}

func serveCommand(ctx context.Context, opts globalOptions) error {
	a, err := newApp(ctx, opts, storeOptional)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.server().Run(ctx)
}

func validateCommand(file string, verbose bool, stdout io.Writer) error {
	cfg, err := config.LoadFromFile(file)
	if err != nil {
		return err
	}

	result := cfg.ValidateDetailed()
	for _, w := range result.Warnings {
		fmt.Fprintf(stdout, "⚠ %s\n", w)
	}
	if verbose {
		fmt.Fprintf(stdout, "Configuration details:\n")
		fmt.Fprintf(stdout, "  Fetch endpoints: %d\n", len(cfg.Fetch.Endpoints))
		fmt.Fprintf(stdout, "  Storage driver: %s\n", valueOr(cfg.Storage.Driver, "none"))
		fmt.Fprintf(stdout, "  Export format: %s\n", cfg.Export.Format)
		fmt.Fprintf(stdout, "  Server address: %s\n", cfg.Server.Addr)
	}
	fmt.Fprintf(stdout, "✓ Configuration file '%s' is valid\n", file)
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// printUsage displays help information
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "DropScrapexter - Product Import for Dropshipping Catalogs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dropscrapexter extract <url>              Extract a product and print it as JSON")
	fmt.Fprintln(w, "  dropscrapexter parse <page.html> <url>    Extract from a saved page without fetching")
	fmt.Fprintln(w, "  dropscrapexter import <urls.txt|->        Import a list of URLs as drafts")
	fmt.Fprintln(w, "  dropscrapexter list                       List stored drafts")
	fmt.Fprintln(w, "  dropscrapexter export [file]              Export stored drafts")
	fmt.Fprintln(w, "  dropscrapexter serve                      Start the HTTP API")
	fmt.Fprintln(w, "  dropscrapexter validate <config.yaml>     Validate configuration file")
	fmt.Fprintln(w, "  dropscrapexter template                   Generate configuration template")
	fmt.Fprintln(w, "  dropscrapexter version                    Show version information")
	fmt.Fprintln(w, "  dropscrapexter help                       Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -c, --config <file>                       Configuration file")
	fmt.Fprintln(w, "  -v, --verbose                             Enable verbose output")
	fmt.Fprintln(w, "  --narrow                                  Use the Alibaba/AliExpress/1688 pipeline")
	fmt.Fprintln(w, "  --save                                    Store the extracted product as a draft")
	fmt.Fprintln(w, "  -f, --format <json|csv|yaml|xml|xlsx>     Export format")
	fmt.Fprintln(w, "  --status <draft|ready|published>          Filter list and export")
	fmt.Fprintln(w, "  --limit <n>                               Maximum drafts to list or export")
}

// printVersion displays version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "DropScrapexter %s\n", version)
	fmt.Fprintf(w, "Build time: %s\n", buildTime)
	fmt.Fprintf(w, "Git commit: %s\n", gitCommit)
}
