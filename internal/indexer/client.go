package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/layout"
)

// Fetcher defines everything the explorer reads from the indexer.
// This interface is implemented by *Client and can be used for testing.
type Fetcher interface {
	FetchMeta(ctx context.Context, dataset string) (Meta, error)
	FetchRange(ctx context.Context, q grid.Query) (grid.Range, error)
	FetchBuffer(ctx context.Context, id grid.ID, path string) (grid.Buffer, error)
	FetchShard(ctx context.Context, dataset, sortID string, n int, kind grid.RangeKind) ([]grid.ID, error)
}

var (
	_ Fetcher            = (*Client)(nil)
	_ grid.RangeSource   = (*Client)(nil)
	_ grid.BufferFetcher = (*Client)(nil)
)

// Meta is the per-dataset metadata document.
type Meta struct {
	Count int `cbor:"count" json:"count"`
}

// Client talks to the indexer's static file and query API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIHost   = "127.0.0.1:3000"
	defaultUserAgent = "beaconscope/0.1"
	requestTimeout   = 10 * time.Second
	maxBodyBytes     = 8 << 20
)

// NewClient builds a Client for the given host:port or URL.
func NewClient(apiHost string) (*Client, error) {
	base, err := parseBaseURL(apiHost)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalized indexer address.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL.String()
}

// FetchMeta retrieves the record count of a dataset.
func (c *Client) FetchMeta(ctx context.Context, dataset string) (Meta, error) {
	if c == nil {
		return Meta{}, fmt.Errorf("client is nil")
	}
	body, err := c.get(ctx, &url.URL{Path: layout.MetaPath(dataset)}, "application/cbor")
	if err != nil {
		return Meta{}, err
	}
	var meta Meta
	if err := cbor.Unmarshal(body, &meta); err != nil {
		return Meta{}, fmt.Errorf("decode meta: %w", err)
	}
	if meta.Count < 0 {
		return Meta{}, fmt.Errorf("decode meta: negative count %d", meta.Count)
	}
	return meta, nil
}

// FetchRange asks the range endpoint for the identifiers of one page.
func (c *Client) FetchRange(ctx context.Context, q grid.Query) (grid.Range, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	s := q.Settings
	values := url.Values{}
	values.Set("kind", q.Kind.String())
	if q.Kind.IsEpoch() {
		values.Set("epoch", strconv.FormatUint(q.Kind.Number, 10))
	}
	values.Set("page", strconv.Itoa(s.PageIndex))
	values.Set("size", strconv.Itoa(s.PageSize))
	sortID := strings.TrimSpace(s.SortID)
	if sortID == "" {
		sortID = grid.DefaultSort
	}
	values.Set("sort", sortID)
	if s.SortDesc {
		values.Set("desc", "1")
	}
	values.Set("total", strconv.Itoa(q.TotalCount))

	rel := &url.URL{Path: layout.RangePath(q.Dataset), RawQuery: values.Encode()}
	body, err := c.get(ctx, rel, "application/json")
	if err != nil {
		return nil, err
	}
	var rng grid.Range
	if err := json.Unmarshal(body, &rng); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rng == nil {
		rng = grid.Range{}
	}
	for i := range rng {
		if rng[i].Path == "" && q.PathOf != nil {
			rng[i].Path = q.PathOf(rng[i].ID)
		}
	}
	return rng, nil
}

// FetchBuffer retrieves the raw bytes of one record.
func (c *Client) FetchBuffer(ctx context.Context, id grid.ID, path string) (grid.Buffer, error) {
	if c == nil {
		return grid.Buffer{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(path) == "" {
		return grid.Buffer{}, fmt.Errorf("record %s has no path", id)
	}
	rel, err := url.Parse(path)
	if err != nil {
		return grid.Buffer{}, fmt.Errorf("parse record path %q: %w", path, err)
	}
	body, err := c.get(ctx, rel, "application/cbor")
	if err != nil {
		return grid.Buffer{}, err
	}
	return grid.Buffer{ID: id, Bytes: body}, nil
}

// FetchShard retrieves the n-th (1-based) sorted id shard of a dataset.
func (c *Client) FetchShard(ctx context.Context, dataset, sortID string, n int, kind grid.RangeKind) ([]grid.ID, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if n < 1 {
		return nil, fmt.Errorf("shard number %d out of range", n)
	}
	body, err := c.get(ctx, &url.URL{Path: layout.ShardPath(dataset, sortID, n)}, "application/cbor")
	if err != nil {
		return nil, err
	}
	return decodeShard(body, kind)
}

func decodeShard(body []byte, kind grid.RangeKind) ([]grid.ID, error) {
	if kind.Tag == grid.KindStrings {
		var raw []string
		if err := cbor.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decode shard: %w", err)
		}
		ids := make([]grid.ID, len(raw))
		for i, s := range raw {
			ids[i] = grid.StringID(s)
		}
		return ids, nil
	}
	var raw []uint64
	if err := cbor.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode shard: %w", err)
	}
	ids := make([]grid.ID, len(raw))
	for i, v := range raw {
		ids[i] = grid.IntID(v)
	}
	return ids, nil
}

func (c *Client) get(ctx context.Context, rel *url.URL, accept string) ([]byte, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func parseBaseURL(apiHost string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiHost)
	if trimmed == "" {
		trimmed = defaultAPIHost
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_host %q: %w", apiHost, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_host %q: missing host", apiHost)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
