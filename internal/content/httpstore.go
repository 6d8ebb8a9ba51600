package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ndi_desktop/internal/domain"
)

const maxDocumentBytes = 1 << 20

// HTTPStore fetches documents from <baseURL>/dialogs/<key>, the way the
// browser build loads them from the site itself.
type HTTPStore struct {
	baseURL string
	http    *http.Client
}

func NewHTTPStore(baseURL string, timeout time.Duration) *HTTPStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (h *HTTPStore) Fetch(ctx context.Context, key string) (domain.Content, error) {
	endpoint := h.baseURL + "/dialogs/" + url.PathEscape(strings.TrimPrefix(key, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Content{}, fmt.Errorf("build content request: %w", err)
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return domain.Content{}, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Content{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Content{}, fmt.Errorf("fetch %s: unexpected status %d", key, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return domain.Content{}, fmt.Errorf("read %s: %w", key, err)
	}
	c, err := Decode(data)
	if err != nil {
		return domain.Content{}, fmt.Errorf("%s: %w", key, err)
	}
	return c, nil
}
