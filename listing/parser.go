// Package listing turns the device's listing responses into BookEntry
// sequences. The firmware's response format sits behind the Parser
// interface so the transfer client never depends on a concrete format.
package listing

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/pablogventura/likebook-wifi-book-uploader/types"
)

// Parser decodes one listing response body into an ordered book sequence.
// Implementations assign contiguous 1-based indices in response order.
type Parser interface {
	Parse(r io.Reader) ([]types.BookEntry, error)
}

// fileRecord matches one element of the firmware's /files JSON array.
type fileRecord struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// JSONParser parses the current firmware's JSON listing.
type JSONParser struct{}

var _ Parser = JSONParser{}

func (JSONParser) Parse(r io.Reader) ([]types.BookEntry, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing body: %w", err)
	}

	var records []fileRecord
	if err := sonic.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to parse listing JSON: %w", err)
	}

	books := make([]types.BookEntry, 0, len(records))
	for i, rec := range records {
		if rec.Name == "" {
			return nil, fmt.Errorf("listing entry %d has no name", i+1)
		}
		books = append(books, types.BookEntry{
			Index: i + 1,
			Name:  rec.Name,
			Size:  rec.Size,
		})
	}
	return books, nil
}
