package config

import (
	"github.com/m-mizutani/paperzip/pkg/domain/model"
	"github.com/m-mizutani/paperzip/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Batch holds batch building configuration
type Batch struct {
	MaxItems    int
	Concurrency int
}

// Flags returns CLI flags for batch configuration
func (c *Batch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "max-items",
			Usage:       "Maximum number of papers in one batch (1-50)",
			Value:       model.MaxBatchItems,
			Destination: &c.MaxItems,
			Sources:     cli.EnvVars("PAPERZIP_MAX_ITEMS"),
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "Number of papers fetched at the same time (1 fetches sequentially)",
			Value:       1,
			Destination: &c.Concurrency,
			Sources:     cli.EnvVars("PAPERZIP_CONCURRENCY"),
		},
	}
}

// Options returns use case options built from the configuration
func (c *Batch) Options() []usecase.BatchOption {
	return []usecase.BatchOption{
		usecase.WithMaxItems(c.MaxItems),
		usecase.WithConcurrency(c.Concurrency),
	}
}
