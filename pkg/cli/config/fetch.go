package config

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/paperzip/pkg/infra/fetcher"
	"github.com/m-mizutani/paperzip/pkg/utils/ctxlog"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Fetch holds configuration of document retrieval
type Fetch struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string

	GCSEnabled         bool
	GCSCredentialsFile string
}

// Flags returns CLI flags for fetch configuration
func (c *Fetch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "fetch-timeout",
			Usage:       "Timeout of fetching a single paper",
			Value:       fetcher.DefaultTimeout,
			Destination: &c.Timeout,
			Sources:     cli.EnvVars("PAPERZIP_FETCH_TIMEOUT"),
		},
		&cli.Int64Flag{
			Name:        "fetch-max-bytes",
			Usage:       "Maximum size of a single paper",
			Value:       fetcher.DefaultMaxBytes,
			Destination: &c.MaxBytes,
			Sources:     cli.EnvVars("PAPERZIP_FETCH_MAX_BYTES"),
		},
		&cli.StringFlag{
			Name:        "user-agent",
			Usage:       "User-Agent header sent to paper servers",
			Value:       fetcher.DefaultUserAgent,
			Destination: &c.UserAgent,
			Sources:     cli.EnvVars("PAPERZIP_USER_AGENT"),
		},
		&cli.BoolFlag{
			Name:        "gcs-enabled",
			Usage:       "Allow gs://bucket/object paper URLs",
			Destination: &c.GCSEnabled,
			Sources:     cli.EnvVars("PAPERZIP_GCS_ENABLED"),
		},
		&cli.StringFlag{
			Name:        "gcs-credentials-file",
			Usage:       "Service account key for GCS. Application Default Credentials are used if empty",
			Destination: &c.GCSCredentialsFile,
			Sources:     cli.EnvVars("PAPERZIP_GCS_CREDENTIALS_FILE"),
		},
	}
}

// Configure builds the document fetcher. The returned function releases
// resources held by the fetcher and must be called on shutdown.
func (c *Fetch) Configure(ctx context.Context) (*fetcher.Router, func(), error) {
	web := fetcher.NewHTTP(
		fetcher.WithTimeout(c.Timeout),
		fetcher.WithMaxBytes(c.MaxBytes),
		fetcher.WithUserAgent(c.UserAgent),
	)

	router := fetcher.NewRouter().
		Register("http", web).
		Register("https", web)

	if !c.GCSEnabled {
		return router, func() {}, nil
	}

	var opts []option.ClientOption
	if c.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.GCSCredentialsFile))
	}

	gcs, err := fetcher.NewGCS(ctx, c.MaxBytes, opts...)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure GCS fetcher")
	}
	router.Register("gs", gcs)

	closer := func() {
		if err := gcs.Close(); err != nil {
			ctxlog.From(ctx).Warn("Failed to close GCS client", "error", err)
		}
	}

	return router, closer, nil
}
