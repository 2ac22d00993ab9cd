package main

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"time"

	"github.com/bcampbell/cxscrape/arc"
	"github.com/bcampbell/cxscrape/extract"
	"github.com/bcampbell/cxscrape/fetch"
	"github.com/bcampbell/cxscrape/store"
)

type ScrapeStats struct {
	Start      time.Time
	End        time.Time
	ErrorCount int
	FetchCount int

	StashCount int
}

// pageSource supplies the raw pages, either live or from the archive.
type pageSource interface {
	Fetch(ctx context.Context, pageURL string) (*fetch.Page, error)
}

// Scraper runs over the id range of a single category.
type Scraper struct {
	Name     string
	Conf     *CategoryConf
	errorLog *log.Logger
	infoLog  *log.Logger
	stats    ScrapeStats
	verbose  bool
	source   pageSource
	out      *store.Dir
	// only set if .warc archiving is configured
	archive *arc.Archiver
}

// NewScraper sets up a scraper for the named category, fetching via client.
func NewScraper(name string, cfg *Config, client fetch.Doer, verbosity int) (*Scraper, error) {
	conf, got := cfg.Category[name]
	if !got {
		return nil, fmt.Errorf("unknown category '%s'", name)
	}
	scraper := Scraper{
		Name:    name,
		Conf:    conf,
		verbose: verbosity > 0,
		out:     &store.Dir{Path: cfg.OutputDir(conf)},
	}

	scraper.errorLog = log.New(os.Stdout, "ERR "+name+": ", 0)
	if verbosity > 0 {
		scraper.infoLog = log.New(os.Stdout, "INF "+name+": ", 0)
	} else {
		scraper.infoLog = log.New(ioutil.Discard, "", 0)
	}

	f := fetch.NewFetcher(client)
	f.Policy = cfg.Fetch.Policy()
	f.Header = cfg.Fetch.Headers()
	f.ErrorLog = scraper.errorLog
	if verbosity > 1 {
		f.InfoLog = scraper.infoLog
	}
	if cfg.Output.ArchiveDir != "" {
		scraper.archive = &arc.Archiver{Dir: cfg.Output.ArchiveDir}
		f.Archive = scraper.archive
	}
	scraper.source = f

	return &scraper, nil
}

// UseArchive makes the scraper read pages back out of the .warc archive
// rather than fetching them.
func (scraper *Scraper) UseArchive() error {
	if scraper.archive == nil {
		return fmt.Errorf("%s: no archive dir configured", scraper.Name)
	}
	scraper.source = scraper.archive
	return nil
}

// SetOutput redirects the logs (handy for tests).
// The info log stays silent if it was switched off by verbosity.
func (scraper *Scraper) SetOutput(w io.Writer) {
	scraper.errorLog.SetOutput(w)
	if scraper.verbose {
		scraper.infoLog.SetOutput(w)
	}
}

// Stats returns the counts from the last run.
func (scraper *Scraper) Stats() ScrapeStats {
	return scraper.stats
}

// Run fetches, extracts and saves every id in the category's range.
// Failures on a single id are logged and skipped. Only a cancelled ctx (or
// an unusable output dir) stops the run early.
func (scraper *Scraper) Run(ctx context.Context) error {
	conf := scraper.Conf
	scraper.infoLog.Printf("start run (ids %d to %d)\n", conf.FirstID, conf.EndID-1)
	scraper.stats = ScrapeStats{}
	scraper.stats.Start = time.Now()
	defer func() {
		stats := &scraper.stats
		stats.End = time.Now()
		elapsed := stats.End.Sub(stats.Start)
		scraper.infoLog.Printf("run finished in %s (%d fetched, %d saved, %d errors)\n", elapsed, stats.FetchCount, stats.StashCount, stats.ErrorCount)
	}()

	err := os.MkdirAll(scraper.out.Path, 0755)
	if err != nil {
		return err
	}

	years := extract.NewYearState(conf.StartYear)
	for id := conf.FirstID; id < conf.EndID; id++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var rec *extract.Record
		rec, years, err = scraper.Scrape(ctx, id, years)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			scraper.errorLog.Printf("skip id %d: %s\n", id, err)
			scraper.stats.ErrorCount++
			continue
		}
		if !rec.Title.Parsed {
			scraper.errorLog.Printf("id %d: couldn't parse title '%s', using it as-is\n", id, rec.Title)
		}

		filename, err := scraper.out.Stash(rec)
		if err != nil {
			scraper.errorLog.Printf("skip id %d: %s\n", id, err)
			scraper.stats.ErrorCount++
			continue
		}
		scraper.stats.StashCount++
		scraper.infoLog.Printf("saved %d: %s (%d chars)\n", id, filename, len(rec.Body))
	}
	return nil
}

// Scrape fetches and extracts a single id.
// For diary categories, years is advanced by the page's month label and the
// new state returned. It is returned unchanged on error.
func (scraper *Scraper) Scrape(ctx context.Context, id int, years extract.YearState) (*extract.Record, extract.YearState, error) {
	page, err := scraper.source.Fetch(ctx, scraper.Conf.PageURL(id))
	if err != nil {
		return nil, years, err
	}
	scraper.stats.FetchCount++

	root, err := extract.Parse(page.Body, page.ContentType)
	if err != nil {
		return nil, years, err
	}

	switch scraper.Conf.Kind {
	case KindLetters:
		rec, err := extract.Letter(id, root)
		return rec, years, err
	case KindDiary:
		diary, err := extract.Diary(root)
		if err != nil {
			return nil, years, err
		}
		years = years.Advance(diary.Label)
		return diary.Record(id, years.Year), years, nil
	default:
		return nil, years, fmt.Errorf("unknown kind '%s'", scraper.Conf.Kind)
	}
}
