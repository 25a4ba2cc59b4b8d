package template

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/thebunny221/smartcms-export/internal/common"
)

// Loader fetches template text by path and caches it for the process
// lifetime. Paths starting with http:// or https:// are fetched over the
// network; anything else is read from the filesystem. There is no
// invalidation — a changed backing resource needs a new path or ClearCache.
type Loader struct {
	client *http.Client
	logger *common.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewLoader creates a template loader.
func NewLoader(logger *common.Logger) *Loader {
	return &Loader{
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		cache:  make(map[string]string),
	}
}

// Load returns the template text for a path, from cache when available.
func (l *Loader) Load(ctx context.Context, path string) (string, error) {
	l.mu.RLock()
	cached, ok := l.cache[path]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	text, err := l.fetch(ctx, path)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	l.cache[path] = text
	l.mu.Unlock()

	l.logger.Debug().Str("path", path).Int("bytes", len(text)).Msg("Template loaded")
	return text, nil
}

// ClearCache drops all cached templates.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]string)
	l.mu.Unlock()
}

// CachedCount returns the number of cached templates.
func (l *Loader) CachedCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

func (l *Loader) fetch(ctx context.Context, path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return "", fmt.Errorf("build template request: %w", err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch template %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetch template %s: status %d", path, resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read template %s: %w", path, err)
		}
		return string(body), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return string(data), nil
}
