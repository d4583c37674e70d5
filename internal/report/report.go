package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"LinkScanner/internal/domain"
)

// Entry is one ranked row of a report document.
type Entry struct {
	ReferenceScoreSum int64                    `json:"reference_score_sum"`
	ReferenceCount    int                      `json:"reference_count"`
	URL               string                   `json:"url"`
	References        []domain.AnswerReference `json:"references"`
	Status            *int                     `json:"status"`
	ErrorKind         *domain.ErrorKind        `json:"error_kind"`
	ErrorDetail       *string                  `json:"error_detail"`
	ElapsedSeconds    *float64                 `json:"elapsed_seconds"`
}

// NewEntry derives the score sum and count for a result.
func NewEntry(r domain.CheckResult) Entry {
	refs := r.References
	if refs == nil {
		refs = []domain.AnswerReference{}
	}
	return Entry{
		ReferenceScoreSum: r.ScoreSum(),
		ReferenceCount:    r.ReferenceCount(),
		URL:               r.URL,
		References:        refs,
		Status:            r.Status,
		ErrorKind:         r.ErrorKind,
		ErrorDetail:       r.ErrorDetail,
		ElapsedSeconds:    r.ElapsedSeconds,
	}
}

// Encode renders results as an indented JSON array in the given order.
// Position in the array is the rank.
func Encode(results []domain.CheckResult) ([]byte, error) {
	entries := make([]Entry, 0, len(results))
	for _, r := range results {
		entries = append(entries, NewEntry(r))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a document produced by Encode.
func Decode(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return entries, nil
}
