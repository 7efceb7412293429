package fetcher

import (
	"context"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

// GCS fetches documents addressed as gs://bucket/object
type GCS struct {
	client   *storage.Client
	maxBytes int64
}

// NewGCS creates a GCS fetcher. Without options the client uses
// Application Default Credentials.
func NewGCS(ctx context.Context, maxBytes int64, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GCS storage client")
	}

	return &GCS{
		client:   client,
		maxBytes: maxBytes,
	}, nil
}

// Fetch reads the whole object
func (x *GCS) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, object, err := ParseGSURL(rawURL)
	if err != nil {
		return nil, err
	}

	r, err := x.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open GCS object",
			goerr.V("bucket", bucket),
			goerr.V("object", object))
	}
	defer func() {
		_ = r.Close()
	}()

	return readAll(r, x.maxBytes, rawURL)
}

// Close releases the storage client
func (x *GCS) Close() error {
	return x.client.Close()
}

// ParseGSURL splits gs://bucket/path/to/object into bucket and object name
func ParseGSURL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", goerr.Wrap(err, "invalid GCS URL", goerr.V("url", rawURL))
	}
	if u.Scheme != "gs" {
		return "", "", goerr.New("not a GCS URL", goerr.V("url", rawURL))
	}

	object := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || object == "" {
		return "", "", goerr.New("GCS URL must have bucket and object", goerr.V("url", rawURL))
	}

	return u.Host, object, nil
}
