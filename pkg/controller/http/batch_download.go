package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/paperzip/pkg/domain/interfaces"
	"github.com/m-mizutani/paperzip/pkg/domain/model"
	"github.com/m-mizutani/paperzip/pkg/domain/types"
	"github.com/m-mizutani/paperzip/pkg/utils/ctxlog"
)

// Response headers of a successful batch download
const (
	HeaderSuccessCount           = "X-Download-Success-Count"
	HeaderErrorCount             = "X-Download-Error-Count"
	HeaderTotalCount             = "X-Download-Total-Count"
	HeaderFileCollectionDuration = "X-Download-File-Collection-Duration"
	HeaderZipCreationDuration    = "X-Download-Zip-Creation-Duration"

	zipContentType = "application/zip"
)

// BatchDownloadHandler handles batch download requests
type BatchDownloadHandler struct {
	batchUC      interfaces.BatchDownloadUseCase
	maxBodyBytes int64
}

// NewBatchDownloadHandler creates a new BatchDownloadHandler
func NewBatchDownloadHandler(batchUC interfaces.BatchDownloadUseCase, maxBodyBytes int64) *BatchDownloadHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &BatchDownloadHandler{
		batchUC:      batchUC,
		maxBodyBytes: maxBodyBytes,
	}
}

// Handle processes batch download requests
func (h *BatchDownloadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	var req model.BatchRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		logger.Warn("Failed to decode batch request", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	archive, err := h.batchUC.Build(ctx, &req)
	if err != nil {
		h.writeBuildError(ctx, w, err)
		return
	}

	outcome := archive.Outcome
	header := w.Header()
	header.Set("Content-Type", zipContentType)
	header.Set("Content-Disposition", contentDisposition(archive.Name))
	header.Set("Content-Length", strconv.Itoa(len(archive.Data)))
	header.Set("Cache-Control", "no-store")
	header.Set(HeaderSuccessCount, strconv.Itoa(outcome.SuccessCount))
	header.Set(HeaderErrorCount, strconv.Itoa(outcome.ErrorCount))
	header.Set(HeaderTotalCount, strconv.Itoa(outcome.TotalCount))
	header.Set(HeaderFileCollectionDuration, strconv.FormatInt(outcome.FetchDurationMs(), 10))
	header.Set(HeaderZipCreationDuration, strconv.FormatInt(outcome.PackDurationMs(), 10))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive.Data); err != nil {
		logger.Error("Failed to write archive", "error", err, "archive_name", archive.Name)
	}
}

// writeBuildError maps a build error to its HTTP response
func (h *BatchDownloadHandler) writeBuildError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := ctxlog.From(ctx)

	switch {
	case goerr.HasTag(err, types.ErrTagInvalidInput), goerr.HasTag(err, types.ErrTagTooManyItems):
		logger.Warn("Rejected batch request", "error", err)
		writeError(ctx, w, http.StatusBadRequest, err.Error(), "")

	case goerr.HasTag(err, types.ErrTagAllFetchesFailed):
		var details string
		if n := errorCount(err); n > 0 {
			details = fmt.Sprintf("%d papers failed to download", n)
		}
		writeError(ctx, w, http.StatusInternalServerError, err.Error(), details)

	default:
		logger.Error("Batch download error", "error", err)
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.CaptureException(err)
		}

		details := err.Error()
		if cause := errors.Unwrap(err); cause != nil {
			details = cause.Error()
		}
		writeError(ctx, w, http.StatusInternalServerError, "Failed to create batch download", details)
	}
}

func errorCount(err error) int {
	goErr := goerr.Unwrap(err)
	if goErr == nil {
		return 0
	}
	n, _ := goErr.Values()[types.ErrKeyErrorCount].(int)
	return n
}

var quotedStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// contentDisposition returns an attachment disposition for name. Printable
// ASCII names are sent as a quoted string, others use RFC 2231 encoding.
func contentDisposition(name string) string {
	printable := true
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			printable = false
			break
		}
	}
	if printable {
		return `attachment; filename="` + quotedStringEscaper.Replace(name) + `"`
	}

	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
