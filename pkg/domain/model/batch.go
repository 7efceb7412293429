package model

import "time"

// MaxBatchItems is the upper bound of papers accepted in one batch
const MaxBatchItems = 50

// DownloadRequestItem is a single document requested for the archive
type DownloadRequestItem struct {
	URL             string `json:"url" toml:"url"`
	FileName        string `json:"fileName" toml:"fileName"`
	Subject         string `json:"subject,omitempty" toml:"subject,omitempty"`
	StandardSubject string `json:"standardSubject,omitempty" toml:"standardSubject,omitempty"`
}

// FilterSet holds the filters the user browsed with. Only used for naming.
type FilterSet struct {
	Years     []string `json:"years,omitempty" toml:"years,omitempty"`
	ExamTypes []string `json:"examTypes,omitempty" toml:"examTypes,omitempty"`
}

// BatchRequest is the body of a batch download request
type BatchRequest struct {
	Papers  []DownloadRequestItem `json:"papers" toml:"papers"`
	Filters FilterSet             `json:"filters" toml:"filters"`
}

// ArchiveEntry is a file stored in the output archive
type ArchiveEntry struct {
	Name    string
	Content []byte
}

// BatchOutcome aggregates counters and timings of one build
type BatchOutcome struct {
	ID            string
	SuccessCount  int
	ErrorCount    int
	TotalCount    int
	FetchDuration time.Duration
	PackDuration  time.Duration
}

// FetchDurationMs returns the file collection time in milliseconds
func (x BatchOutcome) FetchDurationMs() int64 {
	return x.FetchDuration.Milliseconds()
}

// PackDurationMs returns the archive creation time in milliseconds
func (x BatchOutcome) PackDurationMs() int64 {
	return x.PackDuration.Milliseconds()
}

// BatchArchive is the result of a successful build
type BatchArchive struct {
	Name    string   // Derived archive file name
	Data    []byte   // ZIP bytes
	Entries []string // Entry names in insertion order
	Outcome BatchOutcome
}
