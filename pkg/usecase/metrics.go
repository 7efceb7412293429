package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch results used as metric labels
const (
	resultSuccess          = "success"
	resultInvalidInput     = "invalid_input"
	resultTooManyItems     = "too_many_items"
	resultAllFetchesFailed = "all_fetches_failed"
	resultInternal         = "internal"
	resultFailure          = "failure"
)

var (
	// batchTotal counts batch builds by result
	batchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperzip_batch_builds_total",
		Help: "Total batch archive builds by result",
	}, []string{"result"})

	// paperFetchTotal counts single paper fetches by result ("success", "failure")
	paperFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperzip_paper_fetches_total",
		Help: "Total paper fetches by result",
	}, []string{"result"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paperzip_batch_fetch_duration_seconds",
		Help:    "Time spent collecting the papers of a batch",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	packDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paperzip_batch_pack_duration_seconds",
		Help:    "Time spent creating the ZIP archive of a batch",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
	})

	archiveSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paperzip_archive_size_bytes",
		Help:    "Size of created archives",
		Buckets: prometheus.ExponentialBuckets(64<<10, 4, 8),
	})
)
