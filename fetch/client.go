package fetch

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"

	"github.com/bcampbell/arts/util"
	"github.com/bcampbell/biscuit"
	"golang.org/x/net/publicsuffix"
)

// ClientOptions configures the http client built by NewClient.
type ClientOptions struct {
	Timeout time.Duration
	// PerHostDelay is the minimum gap between requests to the same host,
	// on top of any Policy delay.
	PerHostDelay time.Duration
	// CookieFile, if set, is a Netscape-format cookies.txt to preload
	CookieFile string
	// CookieURL is the site the preloaded cookies are set against
	CookieURL string
}

// NewClient creates an http client which doesn't hammer the server and
// optionally carries cookies.
func NewClient(opts ClientOptions) (*http.Client, error) {
	transport := util.NewPoliteTripper()
	transport.PerHostDelay = opts.PerHostDelay

	c := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
	if opts.CookieFile == "" {
		return c, nil
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	cookieFile, err := os.Open(opts.CookieFile)
	if err != nil {
		return nil, err
	}
	defer cookieFile.Close()
	cookies, err := biscuit.ReadCookies(cookieFile)
	if err != nil {
		return nil, err
	}
	host, err := url.Parse(opts.CookieURL)
	if err != nil {
		return nil, err
	}
	jar.SetCookies(host, cookies)
	c.Jar = jar

	return c, nil
}
