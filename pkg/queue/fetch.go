package queue

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

type Fetcher interface {
	Queue(ctx context.Context, statuses []Status) ([]Entry, error)
}

// HTTPFetcher loads the workflow job queue from the CDS API. Client is
// expected to carry the session credentials.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func (f HTTPFetcher) Queue(ctx context.Context, statuses []Status) ([]Entry, error) {
	u, err := url.Parse(strings.TrimRight(f.BaseURL, "/") + "/queue/workflows")
	if err != nil {
		return nil, errors.Wrap(err, "parse queue url")
	}
	q := u.Query()
	for _, s := range statuses {
		q.Add("status", string(s))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build queue request")
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch queue")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("fetch queue: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "decode queue")
	}
	return entries, nil
}
