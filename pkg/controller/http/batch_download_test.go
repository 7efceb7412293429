package http_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	controller "github.com/m-mizutani/paperzip/pkg/controller/http"
	"github.com/m-mizutani/paperzip/pkg/domain/model"
	"github.com/m-mizutani/paperzip/pkg/infra/fetcher"
	"github.com/m-mizutani/paperzip/pkg/usecase"
)

// stubFetcher returns the URL as document content
type stubFetcher struct{}

func (x *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return []byte(url), nil
}

// failingUseCase always fails with a plain error
type failingUseCase struct {
	err error
}

func (x *failingUseCase) Build(ctx context.Context, req *model.BatchRequest) (*model.BatchArchive, error) {
	return nil, x.err
}

// newOrigin starts a paper server. Paths starting with /missing return 404.
func newOrigin(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.HasPrefix(r.URL.Path, "/missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF " + r.URL.Path))
	}))
	t.Cleanup(origin.Close)
	return origin, &hits
}

func newTestServer(t *testing.T) *controller.Server {
	t.Helper()
	uc := usecase.NewBatchDownload(fetcher.NewHTTP())
	server, err := controller.NewServer(context.Background(), uc, controller.WithAddr("localhost:0"))
	gt.NoError(t, err)
	return server
}

func postBatch(t *testing.T, server *controller.Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch v := body.(type) {
	case string:
		payload = []byte(v)
	default:
		var err error
		payload, err = json.Marshal(v)
		gt.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/download/batch", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	gt.Value(t, w.Header().Get("Content-Type")).Equal("application/json")
	var resp model.ErrorResponse
	gt.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestBatchDownload_Success(t *testing.T) {
	origin, _ := newOrigin(t)
	server := newTestServer(t)

	body := map[string]any{
		"papers": []map[string]string{
			{"url": origin.URL + "/a.pdf", "fileName": "report.pdf", "subject": "Data Structures"},
			{"url": origin.URL + "/b.pdf", "fileName": "report"},
			{"url": origin.URL + "/missing/c.pdf", "fileName": "exam1"},
			{"url": origin.URL + "/d.pdf", "fileName": "exam1"},
		},
		"filters": map[string][]string{
			"years":     {"2022", "2023"},
			"examTypes": {"Midterm"},
		},
	}

	w := postBatch(t, server, body)
	gt.Value(t, w.Code).Equal(http.StatusOK)

	h := w.Header()
	gt.Value(t, h.Get("Content-Type")).Equal("application/zip")
	gt.Value(t, h.Get("Content-Disposition")).Equal(`attachment; filename="Data_Structures_Papers_2022-2023_Midterm.zip"`)
	gt.Value(t, h.Get("Cache-Control")).Equal("no-store")
	gt.Value(t, h.Get(controller.HeaderSuccessCount)).Equal("3")
	gt.Value(t, h.Get(controller.HeaderErrorCount)).Equal("1")
	gt.Value(t, h.Get(controller.HeaderTotalCount)).Equal("4")

	for _, key := range []string{controller.HeaderFileCollectionDuration, controller.HeaderZipCreationDuration} {
		ms, err := strconv.Atoi(h.Get(key))
		gt.NoError(t, err)
		gt.True(t, ms >= 0)
	}

	data := w.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	gt.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	gt.Value(t, names).Equal([]string{"report.pdf", "report_2.pdf", "exam1.pdf"})
}

func TestBatchDownload_CountsAddUp(t *testing.T) {
	origin, _ := newOrigin(t)
	server := newTestServer(t)

	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("%d papers", n), func(t *testing.T) {
			var papers []map[string]string
			for i := 0; i < n; i++ {
				path := fmt.Sprintf("/p%d.pdf", i)
				if i%2 == 1 {
					path = "/missing" + path
				}
				papers = append(papers, map[string]string{
					"url":      origin.URL + path,
					"fileName": fmt.Sprintf("p%d", i),
				})
			}

			w := postBatch(t, server, map[string]any{"papers": papers})
			gt.Value(t, w.Code).Equal(http.StatusOK)

			success, _ := strconv.Atoi(w.Header().Get(controller.HeaderSuccessCount))
			failed, _ := strconv.Atoi(w.Header().Get(controller.HeaderErrorCount))
			total, _ := strconv.Atoi(w.Header().Get(controller.HeaderTotalCount))
			gt.Number(t, success+failed).Equal(total)
			gt.Number(t, total).Equal(n)
		})
	}
}

func TestBatchDownload_BadRequest(t *testing.T) {
	origin, hits := newOrigin(t)
	server := newTestServer(t)

	tooMany := make([]map[string]string, model.MaxBatchItems+1)
	for i := range tooMany {
		tooMany[i] = map[string]string{"url": origin.URL + "/a.pdf", "fileName": "a"}
	}

	tests := []struct {
		name    string
		body    any
		wantMsg string
	}{
		{name: "Absent papers", body: map[string]any{}, wantMsg: "Invalid or empty papers array provided"},
		{name: "Null papers", body: `{"papers": null}`, wantMsg: "Invalid or empty papers array provided"},
		{name: "Empty papers", body: map[string]any{"papers": []any{}}, wantMsg: "Invalid or empty papers array provided"},
		{name: "Papers not a list", body: `{"papers": "a.pdf"}`, wantMsg: "Invalid request body"},
		{name: "Malformed JSON", body: `{"papers": [`, wantMsg: "Invalid request body"},
		{name: "Too many papers", body: map[string]any{"papers": tooMany}, wantMsg: "Maximum 50 papers can be downloaded at once"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postBatch(t, server, tt.body)
			gt.Value(t, w.Code).Equal(http.StatusBadRequest)
			resp := decodeError(t, w)
			gt.Value(t, resp.Error).Equal(tt.wantMsg)
		})
	}

	gt.Number(t, hits.Load()).Equal(int32(0))
}

func TestBatchDownload_AllFetchesFailed(t *testing.T) {
	origin, hits := newOrigin(t)
	server := newTestServer(t)

	w := postBatch(t, server, map[string]any{
		"papers": []map[string]string{
			{"url": origin.URL + "/missing/a.pdf", "fileName": "a"},
			{"url": origin.URL + "/missing/b.pdf", "fileName": "b"},
		},
	})

	gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
	resp := decodeError(t, w)
	gt.Value(t, resp.Error).Equal("Failed to fetch any of the requested papers")
	gt.Value(t, resp.Details).Equal("2 papers failed to download")
	gt.Number(t, hits.Load()).Equal(int32(2))
}

func TestBatchDownload_InternalError(t *testing.T) {
	uc := &failingUseCase{err: goerr.Wrap(errors.New("disk full"), "failed to create batch download")}
	handler := controller.NewBatchDownloadHandler(uc, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/download/batch",
		strings.NewReader(`{"papers":[{"url":"http://example.com/a.pdf","fileName":"a"}]}`))
	w := httptest.NewRecorder()
	handler.Handle(w, req)

	gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
	resp := decodeError(t, w)
	gt.Value(t, resp.Error).Equal("Failed to create batch download")
	gt.Value(t, resp.Details).Equal("disk full")
}

func TestBatchDownload_BodyTooLarge(t *testing.T) {
	handler := controller.NewBatchDownloadHandler(usecase.NewBatchDownload(&stubFetcher{}), 16)

	req := httptest.NewRequest(http.MethodPost, "/api/download/batch",
		strings.NewReader(`{"papers":[{"url":"http://example.com/a.pdf","fileName":"a"}]}`))
	w := httptest.NewRecorder()
	handler.Handle(w, req)

	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
}

func TestBatchDownload_Integration(t *testing.T) {
	origin, _ := newOrigin(t)
	server := newTestServer(t)

	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	payload, _ := json.Marshal(map[string]any{
		"papers": []map[string]string{
			{"url": origin.URL + "/a.pdf", "fileName": "a", "standardSubject": "Operating Systems"},
		},
	})

	resp, err := http.Post(ts.URL+"/api/download/batch", "application/json", bytes.NewReader(payload))
	gt.NoError(t, err)
	defer func() {
		_ = resp.Body.Close() // Error ignored in test
	}()

	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	gt.Value(t, resp.Header.Get("Content-Disposition")).Equal(`attachment; filename="Operating_Systems_Papers.zip"`)
}

func TestBatchDownload_ContentDisposition(t *testing.T) {
	handler := controller.NewBatchDownloadHandler(usecase.NewBatchDownload(&stubFetcher{}), 0)

	tests := []struct {
		name     string
		subject  string
		wantName string
	}{
		{name: "Plain subject", subject: "Data Structures", wantName: "Data_Structures_Papers.zip"},
		{name: "Quote in subject", subject: `Intro "AI"`, wantName: `Intro_"AI"_Papers.zip`},
		{name: "Backslash and semicolon", subject: `C\C++; x=1`, wantName: `C\C++;_x=1_Papers.zip`},
		{name: "Non-ASCII subject", subject: "Mécanique Générale", wantName: "Mécanique_Générale_Papers.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(map[string]any{
				"papers": []map[string]string{
					{"url": "http://example.com/a.pdf", "fileName": "a", "subject": tt.subject},
				},
			})
			gt.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/download/batch", bytes.NewReader(payload))
			w := httptest.NewRecorder()
			handler.Handle(w, req)
			gt.Value(t, w.Code).Equal(http.StatusOK)

			disposition, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
			gt.NoError(t, err)
			gt.Value(t, disposition).Equal("attachment")
			gt.Value(t, params["filename"]).Equal(tt.wantName)
		})
	}
}

func TestOpenAPIEndpoint(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil)
	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)

	gt.Value(t, w.Code).Equal(http.StatusOK)

	var doc map[string]any
	gt.NoError(t, json.NewDecoder(w.Body).Decode(&doc))
	paths, ok := doc["paths"].(map[string]any)
	gt.True(t, ok)
	_, ok = paths["/api/download/batch"]
	gt.True(t, ok)
}
