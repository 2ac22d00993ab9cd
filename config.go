package main

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/bcampbell/cxscrape/fetch"
	"gopkg.in/gcfg.v1"
)

// the two kinds of record the archive holds
const (
	KindLetters = "letters"
	KindDiary   = "diary"
)

// defaultConfig mirrors the id ranges of the archive as last surveyed.
const defaultConfig = `
[fetch]
useragent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
attempts = 3
maxdelay = 3s
timeout = 10s
politedelay = 0s

[output]
dir = .

[category "letters"]
kind = letters
url = http://www.luxunmuseum.com.cn/cx/content.php
firstid = 2913
endid = 4355
subdir = shuxin

[category "diary"]
kind = diary
url = http://www.luxunmuseum.com.cn/cx/content.php
tid = 3
firstid = 4395
endid = 4677
subdir = riji
startyear = 1912
`

type FetchConf struct {
	UserAgent   string
	Header      []string // extra headers, "Name: value"
	Attempts    int
	MaxDelay    string
	Timeout     string
	PoliteDelay string
	CookieFile  string
}

type OutputConf struct {
	Dir        string
	ArchiveDir string
}

// CategoryConf describes one pass over a range of archive ids.
type CategoryConf struct {
	Kind string
	URL  string
	TID  int // tid query param, if non-zero

	// ids run from FirstID up to (but not including) EndID
	FirstID int
	EndID   int

	SubDir    string // output subdirectory
	StartYear int    // year of the first diary entry
}

type Config struct {
	Fetch    FetchConf
	Output   OutputConf
	Category map[string]*CategoryConf
}

// LoadConfig reads a config file, or the built-in defaults if filename is "".
func LoadConfig(filename string) (*Config, error) {
	cfg := &Config{}
	var err error
	if filename == "" {
		err = gcfg.ReadStringInto(cfg, defaultConfig)
	} else {
		err = gcfg.ReadFileInto(cfg, filename)
	}
	if err != nil {
		return nil, err
	}
	err = cfg.check()
	if err != nil {
		if filename != "" {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) check() error {
	if cfg.Fetch.Attempts == 0 {
		cfg.Fetch.Attempts = fetch.DefaultPolicy().Attempts
	}
	if cfg.Fetch.Attempts < 0 {
		return fmt.Errorf("bad attempts (%d)", cfg.Fetch.Attempts)
	}
	for _, d := range []string{cfg.Fetch.MaxDelay, cfg.Fetch.Timeout, cfg.Fetch.PoliteDelay} {
		if _, err := parseDuration(d, 0); err != nil {
			return err
		}
	}
	for _, h := range cfg.Fetch.Header {
		if !strings.Contains(h, ":") {
			return fmt.Errorf("bad header %q (expected \"Name: value\")", h)
		}
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
	if len(cfg.Category) == 0 {
		return fmt.Errorf("no categories defined")
	}

	for name, cat := range cfg.Category {
		switch cat.Kind {
		case KindLetters, KindDiary:
		default:
			return fmt.Errorf("category %s: unknown kind '%s'", name, cat.Kind)
		}
		if cat.URL == "" {
			return fmt.Errorf("category %s: missing url", name)
		}
		normalised, err := purell.NormalizeURLString(cat.URL, purell.FlagsSafe)
		if err != nil {
			return fmt.Errorf("category %s: %w", name, err)
		}
		cat.URL = normalised
		if cat.EndID < cat.FirstID {
			return fmt.Errorf("category %s: bad id range [%d,%d)", name, cat.FirstID, cat.EndID)
		}
		if cat.SubDir == "" {
			cat.SubDir = name
		}
	}
	return nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// Policy returns the retry policy to fetch with.
func (fc *FetchConf) Policy() fetch.Policy {
	p := fetch.DefaultPolicy()
	p.Attempts = fc.Attempts
	// already vetted by check()
	p.MaxDelay, _ = parseDuration(fc.MaxDelay, p.MaxDelay)
	p.Timeout, _ = parseDuration(fc.Timeout, p.Timeout)
	return p
}

// Headers returns the header set to send with every request.
func (fc *FetchConf) Headers() http.Header {
	h := http.Header{}
	if fc.UserAgent != "" {
		h.Set("User-Agent", fc.UserAgent)
	}
	for _, raw := range fc.Header {
		parts := strings.SplitN(raw, ":", 2)
		h.Add(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}
	return h
}

// ClientOptions returns the settings for the http client.
func (fc *FetchConf) ClientOptions(cookieURL string) fetch.ClientOptions {
	timeout, _ := parseDuration(fc.Timeout, fetch.DefaultPolicy().Timeout)
	politeDelay, _ := parseDuration(fc.PoliteDelay, 0)
	return fetch.ClientOptions{
		Timeout:      timeout,
		PerHostDelay: politeDelay,
		CookieFile:   fc.CookieFile,
		CookieURL:    cookieURL,
	}
}

// PageURL builds the url of the archive page for the given id.
func (cat *CategoryConf) PageURL(id int) string {
	u, err := url.Parse(cat.URL)
	if err != nil {
		// already vetted by check()
		panic(err)
	}
	q := u.Query()
	q.Set("id", strconv.Itoa(id))
	if cat.TID != 0 {
		q.Set("tid", strconv.Itoa(cat.TID))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// OutputDir is where the records for category are written.
func (cfg *Config) OutputDir(cat *CategoryConf) string {
	return filepath.Join(cfg.Output.Dir, cat.SubDir)
}

// CategoryNames lists the categories in id order.
func (cfg *Config) CategoryNames() []string {
	names := make([]string, 0, len(cfg.Category))
	for name := range cfg.Category {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := cfg.Category[names[i]], cfg.Category[names[j]]
		if a.FirstID != b.FirstID {
			return a.FirstID < b.FirstID
		}
		return names[i] < names[j]
	})
	return names
}
