package usecase

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/paperzip/pkg/domain/interfaces"
	"github.com/m-mizutani/paperzip/pkg/domain/model"
	"github.com/m-mizutani/paperzip/pkg/domain/types"
	"github.com/m-mizutani/paperzip/pkg/utils/ctxlog"
	"github.com/m-mizutani/paperzip/pkg/utils/safe"
	"golang.org/x/sync/errgroup"
)

// MaxConcurrency caps parallel fetches of one batch
const MaxConcurrency = 8

type batchDownload struct {
	fetcher     interfaces.DocumentFetcher
	maxItems    int
	concurrency int
}

// BatchOption is a functional option for the batch download use case
type BatchOption func(*batchDownload)

// WithMaxItems lowers the number of papers accepted in one batch. Values
// outside 1..model.MaxBatchItems are ignored.
func WithMaxItems(n int) BatchOption {
	return func(uc *batchDownload) {
		if n >= 1 && n <= model.MaxBatchItems {
			uc.maxItems = n
		}
	}
}

// WithConcurrency sets how many papers are fetched at the same time. 1 (the
// default) fetches strictly one after another. Entry names are assigned in
// input order whatever the value is.
func WithConcurrency(n int) BatchOption {
	return func(uc *batchDownload) {
		switch {
		case n < 1:
			uc.concurrency = 1
		case n > MaxConcurrency:
			uc.concurrency = MaxConcurrency
		default:
			uc.concurrency = n
		}
	}
}

// NewBatchDownload creates a new instance of BatchDownloadUseCase
func NewBatchDownload(fetcher interfaces.DocumentFetcher, opts ...BatchOption) interfaces.BatchDownloadUseCase {
	uc := &batchDownload{
		fetcher:     fetcher,
		maxItems:    model.MaxBatchItems,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// fetchResult is the outcome of fetching one paper
type fetchResult struct {
	data []byte
	err  error
}

// Build fetches every paper of req and packs the successful ones into a ZIP archive
func (uc *batchDownload) Build(ctx context.Context, req *model.BatchRequest) (*model.BatchArchive, error) {
	if err := uc.validate(req); err != nil {
		if goerr.HasTag(err, types.ErrTagTooManyItems) {
			batchTotal.WithLabelValues(resultTooManyItems).Inc()
		} else {
			batchTotal.WithLabelValues(resultInvalidInput).Inc()
		}
		return nil, err
	}

	outcome := &model.BatchOutcome{
		ID:         uuid.NewString(),
		TotalCount: len(req.Papers),
	}
	logger := ctxlog.From(ctx).With("batch_id", outcome.ID)
	ctx = ctxlog.With(ctx, logger)

	logger.Info("Processing batch download",
		"total", outcome.TotalCount,
		"concurrency", uc.concurrency,
	)

	var archive *model.BatchArchive
	if err := safe.Call(ctx, func(ctx context.Context) error {
		var err error
		archive, err = uc.build(ctx, req, outcome)
		return err
	}); err != nil {
		if goerr.HasTag(err, types.ErrTagAllFetchesFailed) {
			batchTotal.WithLabelValues(resultAllFetchesFailed).Inc()
			logger.Warn("No paper could be fetched",
				"error_count", outcome.ErrorCount,
				"total", outcome.TotalCount,
			)
			return nil, err
		}

		batchTotal.WithLabelValues(resultInternal).Inc()
		logger.Error("Failed to build batch archive", "error", err)
		return nil, goerr.Wrap(err, "failed to create batch download",
			goerr.T(types.ErrTagInternal),
			goerr.V("batch_id", outcome.ID))
	}

	batchTotal.WithLabelValues(resultSuccess).Inc()
	logger.Info("Created batch archive",
		"archive_name", archive.Name,
		"success", outcome.SuccessCount,
		"errors", outcome.ErrorCount,
		"size", humanize.Bytes(uint64(len(archive.Data))),
		"fetch_ms", outcome.FetchDurationMs(),
		"pack_ms", outcome.PackDurationMs(),
	)

	return archive, nil
}

func (uc *batchDownload) validate(req *model.BatchRequest) error {
	if req == nil || len(req.Papers) == 0 {
		return goerr.New("Invalid or empty papers array provided",
			goerr.T(types.ErrTagInvalidInput))
	}

	if len(req.Papers) > uc.maxItems {
		return goerr.New(fmt.Sprintf("Maximum %d papers can be downloaded at once", uc.maxItems),
			goerr.T(types.ErrTagTooManyItems),
			goerr.V(types.ErrKeyTotalCount, len(req.Papers)),
			goerr.V(types.ErrKeyMaxItems, uc.maxItems))
	}

	return nil
}

func (uc *batchDownload) build(ctx context.Context, req *model.BatchRequest, outcome *model.BatchOutcome) (*model.BatchArchive, error) {
	logger := ctxlog.From(ctx)

	fetchStart := time.Now()
	results := uc.fetchAll(ctx, req.Papers)

	resolver := model.NewNameResolver()
	entries := make([]model.ArchiveEntry, 0, len(results))
	for i, result := range results {
		paper := req.Papers[i]
		if result.err != nil {
			outcome.ErrorCount++
			paperFetchTotal.WithLabelValues(resultFailure).Inc()
			logger.Warn("Failed to fetch paper",
				"index", i,
				"url", paper.URL,
				"file_name", paper.FileName,
				"error", result.err,
			)
			continue
		}

		name := resolver.Resolve(paper.FileName)
		entries = append(entries, model.ArchiveEntry{
			Name:    name,
			Content: result.data,
		})
		outcome.SuccessCount++
		paperFetchTotal.WithLabelValues(resultSuccess).Inc()
	}
	outcome.FetchDuration = time.Since(fetchStart)
	fetchDuration.Observe(outcome.FetchDuration.Seconds())

	if outcome.SuccessCount == 0 {
		return nil, goerr.New("Failed to fetch any of the requested papers",
			goerr.T(types.ErrTagAllFetchesFailed),
			goerr.V(types.ErrKeyErrorCount, outcome.ErrorCount),
			goerr.V(types.ErrKeyTotalCount, outcome.TotalCount))
	}

	logger.Debug("Creating ZIP archive", "entries", len(entries))

	packStart := time.Now()
	data, err := packZip(entries, packStart)
	if err != nil {
		return nil, err
	}
	outcome.PackDuration = time.Since(packStart)
	packDuration.Observe(outcome.PackDuration.Seconds())
	archiveSize.Observe(float64(len(data)))

	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name
	}

	return &model.BatchArchive{
		Name:    req.ArchiveName(),
		Data:    data,
		Entries: names,
		Outcome: *outcome,
	}, nil
}

// fetchAll fetches papers and returns results indexed like papers
func (uc *batchDownload) fetchAll(ctx context.Context, papers []model.DownloadRequestItem) []fetchResult {
	results := make([]fetchResult, len(papers))

	if uc.concurrency <= 1 {
		for i, paper := range papers {
			results[i] = uc.fetchOne(ctx, paper)
		}
		return results
	}

	var eg errgroup.Group
	eg.SetLimit(uc.concurrency)
	for i, paper := range papers {
		eg.Go(func() error {
			results[i] = uc.fetchOne(ctx, paper)
			return nil
		})
	}
	_ = eg.Wait() // fetchOne never returns an error to the group

	return results
}

func (uc *batchDownload) fetchOne(ctx context.Context, paper model.DownloadRequestItem) fetchResult {
	var data []byte
	err := safe.Call(ctx, func(ctx context.Context) error {
		var err error
		data, err = uc.fetcher.Fetch(ctx, paper.URL)
		return err
	})
	if err != nil {
		return fetchResult{err: err}
	}
	return fetchResult{data: data}
}

// packZip writes entries into a ZIP archive with maximum DEFLATE compression
func packZip(entries []model.ArchiveEntry, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, entry := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create zip entry", goerr.V("name", entry.Name))
		}
		if _, err := w.Write(entry.Content); err != nil {
			return nil, goerr.Wrap(err, "failed to write zip entry", goerr.V("name", entry.Name))
		}
	}

	if err := zw.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to finalize zip archive")
	}

	return buf.Bytes(), nil
}
