package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/paperzip/pkg/utils/ctxlog"
)

//go:embed openapi.yaml
var openapiSpec []byte

// loadOpenAPI parses and validates the embedded API description
func loadOpenAPI(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse OpenAPI document")
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, goerr.Wrap(err, "invalid OpenAPI document")
	}

	return doc, nil
}

// handleOpenAPI serves the API description as JSON
func handleOpenAPI(doc *openapi3.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			ctxlog.From(r.Context()).Error("Failed to encode OpenAPI document", "error", err)
		}
	}
}
