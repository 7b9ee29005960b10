package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// AssetLocator turns the stored path of a product asset into a handle the
// buyer can download from. File bytes are served by the asset host, not by
// this service.
type AssetLocator interface {
	// URL returns the download URL for the given storage key.
	URL(ctx context.Context, key string) (string, error)
}

// BaseURLLocator builds download URLs by joining a base URL and the key.
type BaseURLLocator struct {
	base *url.URL
}

// NewBaseURLLocator creates a locator rooted at baseURL.
func NewBaseURLLocator(baseURL string) (*BaseURLLocator, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse asset base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("asset base url %q must be absolute", baseURL)
	}
	return &BaseURLLocator{base: u}, nil
}

// URL returns base/key. Keys are relative; leading slashes and ".." segments
// are rejected so a key cannot escape the base path.
func (l *BaseURLLocator) URL(_ context.Context, key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("empty asset key")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("asset key %q escapes base path", key)
		}
	}
	return l.base.JoinPath(strings.Split(key, "/")...).String(), nil
}
