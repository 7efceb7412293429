package interfaces

import "context"

// DocumentFetcher retrieves the content of a remote document
type DocumentFetcher interface {
	// Fetch reads the whole document located by url
	Fetch(ctx context.Context, url string) ([]byte, error)
}
