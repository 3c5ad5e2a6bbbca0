package reference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"posimport/internal/config"
)

// FetchError reports a non-success response from the mapping source.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("fetch %s: status=%d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: status=%d body=%s", e.URL, e.StatusCode, e.Body)
}

// Client downloads reference workbooks. Requests are never retried.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
}

func NewClient(cfg config.Config) *Client {
	timeout := time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the raw body of rawURL and the file name it should be parsed as.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, []byte, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", nil, errors.New("missing MAPPING_URL")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Accept", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return "", nil, &FetchError{URL: u.String(), StatusCode: resp.StatusCode, Body: strings.TrimSpace(snippet)}
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = "mapping.xlsx"
	}
	return name, body, nil
}

// FetchMapping reads the store mapping from localPath when given, otherwise from MAPPING_URL.
func (c *Client) FetchMapping(ctx context.Context, localPath string) (StoreMapping, error) {
	if localPath != "" {
		blob, err := os.ReadFile(localPath)
		if err != nil {
			return StoreMapping{}, err
		}
		return ParseStoreMapping(localPath, blob)
	}

	name, blob, err := c.Fetch(ctx, c.cfg.MappingURL)
	if err != nil {
		return StoreMapping{}, err
	}
	return ParseStoreMapping(name, blob)
}
