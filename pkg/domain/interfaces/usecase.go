package interfaces

import (
	"context"

	"github.com/m-mizutani/paperzip/pkg/domain/model"
)

// BatchDownloadUseCase bundles requested papers into a single archive
type BatchDownloadUseCase interface {
	// Build fetches every paper of req and packs the successful ones into a ZIP archive
	Build(ctx context.Context, req *model.BatchRequest) (*model.BatchArchive, error)
}
