package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/paperzip/pkg/cli/config"
	"github.com/m-mizutani/paperzip/pkg/domain/model"
	"github.com/m-mizutani/paperzip/pkg/usecase"
	"github.com/m-mizutani/paperzip/pkg/utils/ctxlog"
	"github.com/urfave/cli/v3"
)

func cmdBundle() *cli.Command {
	var (
		bundleCfg config.Bundle
		batchCfg  config.Batch
		fetchCfg  config.Fetch
	)

	var flags []cli.Flag
	flags = append(flags, bundleCfg.Flags()...)
	flags = append(flags, batchCfg.Flags()...)
	flags = append(flags, fetchCfg.Flags()...)

	return &cli.Command{
		Name:    "bundle",
		Aliases: []string{"b"},
		Usage:   "Create a paper archive from a manifest file",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			req, err := bundleCfg.LoadRequest()
			if err != nil {
				return err
			}

			docFetcher, closeFetcher, err := fetchCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeFetcher()

			batchUC := usecase.NewBatchDownload(docFetcher, batchCfg.Options()...)
			archive, err := batchUC.Build(ctx, req)
			if err != nil {
				return err
			}

			path := bundleCfg.OutputPath(archive.Name)
			if err := os.WriteFile(path, archive.Data, 0644); err != nil {
				return goerr.Wrap(err, "failed to write archive", goerr.V("path", path))
			}

			logger.Debug("Archive written", slog.String("path", path))
			printSummary(path, archive)
			return nil
		},
	}
}

// printSummary reports the result of the bundle command on stdout
func printSummary(path string, archive *model.BatchArchive) {
	o := archive.Outcome

	status := color.GreenString("OK")
	if o.ErrorCount > 0 {
		status = color.YellowString("PARTIAL")
	}

	fmt.Fprintf(color.Output, "%s %s (%s)\n", status, path, humanize.Bytes(uint64(len(archive.Data))))
	fmt.Fprintf(color.Output, "  papers: %d fetched, %s, %d total\n",
		o.SuccessCount,
		failedLabel(o.ErrorCount),
		o.TotalCount,
	)
	fmt.Fprintf(color.Output, "  time:   fetch %dms, zip %dms\n", o.FetchDurationMs(), o.PackDurationMs())
	for _, name := range archive.Entries {
		fmt.Fprintf(color.Output, "  - %s\n", name)
	}
}

func failedLabel(n int) string {
	label := fmt.Sprintf("%d failed", n)
	if n > 0 {
		return color.RedString(label)
	}
	return label
}
