package source

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/goph/emperror"
)

// HTTPTimeout bounds a complete http download
var HTTPTimeout = 5 * time.Minute

func openHTTP(ctx context.Context, url string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, emperror.Wrapf(err, "cannot create request for %s", url)
	}
	client := &http.Client{
		Timeout: HTTPTimeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, emperror.Wrapf(err, "cannot get %s", url)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d: %w", url, resp.StatusCode, fs.ErrNotExist)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return &Resource{ReadCloser: resp.Body, Location: url, Size: resp.ContentLength}, nil
}
