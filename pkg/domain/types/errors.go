package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify batch failures for the transport layer
var (
	ErrTagInvalidInput     = goerr.NewTag("invalid_input")
	ErrTagTooManyItems     = goerr.NewTag("too_many_items")
	ErrTagAllFetchesFailed = goerr.NewTag("all_fetches_failed")
	ErrTagInternal         = goerr.NewTag("internal")
)

// Keys of values attached to batch errors
const (
	ErrKeyErrorCount = "error_count"
	ErrKeyTotalCount = "total_count"
	ErrKeyMaxItems   = "max_items"
)
