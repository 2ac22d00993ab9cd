// cxscrape downloads the letters and diary entries from the Lu Xun museum
// archive, saving each one as a plain text file.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/bcampbell/cxscrape/extract"
	"github.com/bcampbell/cxscrape/fetch"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var opts struct {
	configFile string
	outputDir  string
	archiveDir string
	verbosity  int
	list       bool
}

var rootCmd = &cobra.Command{
	Use:   "cxscrape [flags] [category...]",
	Short: "Scrape letters and diary entries from the Lu Xun museum archive",
	Long: `Walks the configured id range of each category, fetching each page,
extracting the title and text, and saving it as <output>/<subdir>/<title>.txt.

With no categories given, all of them are run, in id order.
Without a config file, the built-in defaults are used.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScrape,
}

var dumpCmd = &cobra.Command{
	Use:   "dump <category> <id>",
	Short: "Fetch and extract a single page, printing the result to stdout",
	Long: `Fetches and extracts a single page, printing the record to stdout
without saving it.

A lone diary page carries no year, so the year printed is the one given by
--year (default: the category's startyear) rather than one inferred from
the preceding entries.`,
	Args: cobra.ExactArgs(2),
	RunE: runDump,
}

var dumpYear int

var rescrapeCmd = &cobra.Command{
	Use:   "rescrape [category...]",
	Short: "Re-extract records from the .warc archive, without fetching",
	Long: `Reads each page of the given categories (or all of them) back out of
the archive dir, extracting and saving as a normal run would.
Pages missing from the archive are logged and skipped.`,
	RunE: runRescrape,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "s", "", "config file (defaults to $CXSCRAPE_CONFIG, then built-in settings)")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "output dir (overrides config)")
	flags.StringVarP(&opts.archiveDir, "archive", "a", "", "archive dir to dump .warc files into (overrides config)")
	flags.IntVarP(&opts.verbosity, "verbosity", "v", 1, "verbosity of output (0=errors only 1=info 2=debug)")
	rootCmd.Flags().BoolVarP(&opts.list, "list", "l", false, "List categories and exit")

	dumpCmd.Flags().IntVarP(&dumpYear, "year", "y", 0, "year to date a diary entry with (default: the category's startyear)")
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(rescrapeCmd)
}

func loadConfig() (*Config, error) {
	filename := opts.configFile
	if filename == "" {
		filename = os.Getenv("CXSCRAPE_CONFIG")
	}
	cfg, err := LoadConfig(filename)
	if err != nil {
		return nil, err
	}
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}
	if opts.archiveDir != "" {
		cfg.Output.ArchiveDir = opts.archiveDir
	}
	return cfg, nil
}

// newClient builds the http client shared by all the scrapers.
func newClient(cfg *Config) (fetch.Doer, error) {
	// any cookies are set against the first category's site
	first := cfg.CategoryNames()[0]
	return fetch.NewClient(cfg.Fetch.ClientOptions(cfg.Category[first].URL))
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if opts.list {
		for _, name := range cfg.CategoryNames() {
			cat := cfg.Category[name]
			fmt.Printf("%s (%s, ids %d-%d)\n", name, cat.Kind, cat.FirstID, cat.EndID-1)
		}
		return nil
	}

	return runCategories(cmd.Context(), cfg, args, false)
}

func runRescrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Output.ArchiveDir == "" {
		return fmt.Errorf("no archive dir (use -a or set archivedir in config)")
	}
	return runCategories(cmd.Context(), cfg, args, true)
}

// runCategories runs the named categories in turn (all of them if none named).
func runCategories(ctx context.Context, cfg *Config, targets []string, fromArchive bool) error {
	if len(targets) == 0 {
		targets = cfg.CategoryNames()
	}
	for _, name := range targets {
		if _, got := cfg.Category[name]; !got {
			return fmt.Errorf("unknown category '%s'", name)
		}
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	for _, name := range targets {
		scraper, err := NewScraper(name, cfg, client, opts.verbosity)
		if err != nil {
			return err
		}
		if fromArchive {
			if err := scraper.UseArchive(); err != nil {
				return err
			}
		}
		err = scraper.Run(ctx)
		if err == context.Canceled {
			fmt.Fprintf(os.Stderr, "interrupted\n")
			return nil
		}
		if err != nil {
			// a dud output dir only affects this category
			fmt.Fprintf(os.Stderr, "ERR %s: run aborted: %s\n", name, err)
		}
	}
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	name := args[0]
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad id '%s'", args[1])
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	scraper, err := NewScraper(name, cfg, client, opts.verbosity)
	if err != nil {
		return err
	}

	rec, _, err := scraper.Scrape(cmd.Context(), id, dumpYears(scraper.Conf, dumpYear))
	if err != nil {
		return err
	}
	fmt.Printf("%d: %s\n\n%s\n", rec.ID, rec.Title, rec.Body)
	return nil
}

// dumpYears gives the year state for dating a single diary entry.
// The page's own month label is applied afterwards, so a lone 正月 page
// stays in the given year.
func dumpYears(conf *CategoryConf, year int) extract.YearState {
	if year == 0 {
		year = conf.StartYear
	}
	return extract.NewYearState(year)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()
	rand.Seed(time.Now().UnixNano())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
