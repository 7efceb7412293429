package fetcher

import (
	"context"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/paperzip/pkg/domain/interfaces"
)

// Router dispatches a fetch to the fetcher registered for the URL scheme
type Router struct {
	fetchers map[string]interfaces.DocumentFetcher
}

// NewRouter creates an empty Router
func NewRouter() *Router {
	return &Router{
		fetchers: make(map[string]interfaces.DocumentFetcher),
	}
}

// Register binds fetcher to scheme (e.g. "https", "gs")
func (x *Router) Register(scheme string, fetcher interfaces.DocumentFetcher) *Router {
	x.fetchers[strings.ToLower(scheme)] = fetcher
	return x
}

// Fetch implements interfaces.DocumentFetcher
func (x *Router) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid document URL", goerr.V("url", rawURL))
	}

	fetcher, ok := x.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, goerr.New("unsupported URL scheme",
			goerr.V("url", rawURL),
			goerr.V("scheme", u.Scheme))
	}

	return fetcher.Fetch(ctx, rawURL)
}
