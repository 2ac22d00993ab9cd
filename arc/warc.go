package arc

// helpers to write out raw HTTP responses to noddy .warc files

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bcampbell/cxscrape/fetch"
	"github.com/bcampbell/warc"
	"github.com/flytam/filenamify"
)

// Archiver dumps responses into .warc files under Dir.
// One file per URL, so a refetch replaces the older copy.
type Archiver struct {
	Dir string
}

// eg "http://example.com/cx/content.php?id=4395&tid=3" returns
// "example.com/cx_content.php_id=4395&tid=3.warc"
func archivePath(srcURL string) (string, error) {
	u, err := url.Parse(srcURL)
	if err != nil {
		return "", err
	}
	opts := filenamify.Options{Replacement: "_", MaxLength: 200}
	host, err := filenamify.Filenamify(u.Host, opts)
	if err != nil {
		return "", err
	}
	name, err := filenamify.Filenamify(u.RequestURI(), opts)
	if err != nil {
		return "", err
	}
	return filepath.Join(host, name+".warc"), nil
}

// ArchiveResponse writes resp out to a .warc file.
// resp.Body is consumed, so callers should pass in a replayable body.
func (a *Archiver) ArchiveResponse(resp *http.Response, srcURL string, timeStamp time.Time) error {
	rel, err := archivePath(srcURL)
	if err != nil {
		return err
	}
	full := filepath.Join(a.Dir, rel)
	err = os.MkdirAll(filepath.Dir(full), 0777) // let umask cull the perms down...
	if err != nil {
		return err
	}

	outfile, err := os.Create(full)
	if err != nil {
		return err
	}
	defer outfile.Close()

	return warc.Write(outfile, resp, srcURL, timeStamp)
}

// ReadResponse loads an archived response back in.
func (a *Archiver) ReadResponse(srcURL string) (*http.Response, error) {
	rel, err := archivePath(srcURL)
	if err != nil {
		return nil, err
	}
	return warc.ReadFile(filepath.Join(a.Dir, rel))
}

// Fetch serves a page out of the archive instead of the network.
// Archived error responses fail with a *fetch.HTTPError, as they would live.
func (a *Archiver) Fetch(ctx context.Context, srcURL string) (*fetch.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.ReadResponse(srcURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &fetch.HTTPError{StatusCode: resp.StatusCode, URL: srcURL}
	}
	return &fetch.Page{
		URL:         srcURL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
