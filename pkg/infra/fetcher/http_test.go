package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/paperzip/pkg/infra/fetcher"
)

func TestHTTP_Fetch_Success(t *testing.T) {
	content := []byte("%PDF-1.4 fake paper")
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}))
	defer server.Close()

	f := fetcher.NewHTTP()
	data, err := f.Fetch(context.Background(), server.URL+"/paper.pdf")
	gt.NoError(t, err)
	gt.Value(t, data).Equal(content)
	gt.Value(t, gotUA).Equal(fetcher.DefaultUserAgent)
	gt.Value(t, gotAccept).Equal(fetcher.DefaultAccept)
}

func TestHTTP_Fetch_CustomHeaders(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := fetcher.NewHTTP(fetcher.WithUserAgent("paperzip-test"))
	_, err := f.Fetch(context.Background(), server.URL)
	gt.NoError(t, err)
	gt.Value(t, gotUA).Equal("paperzip-test")
}

func TestHTTP_Fetch_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/large", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 128)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := fetcher.NewHTTP(
		fetcher.WithTimeout(100*time.Millisecond),
		fetcher.WithMaxBytes(64),
	)

	tests := []struct {
		name    string
		url     string
		wantMsg string
	}{
		{name: "Not found", url: server.URL + "/missing", wantMsg: "unexpected status code"},
		{name: "Server error", url: server.URL + "/broken", wantMsg: "unexpected status code"},
		{name: "Timeout", url: server.URL + "/slow", wantMsg: "failed to send request"},
		{name: "Too large", url: server.URL + "/large", wantMsg: "document is too large"},
		{name: "Invalid URL", url: "http://[::1", wantMsg: "failed to create request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := f.Fetch(context.Background(), tt.url)
			gt.Error(t, err)
			gt.Value(t, data).Nil()
			gt.String(t, err.Error()).Contains(tt.wantMsg)
		})
	}
}
