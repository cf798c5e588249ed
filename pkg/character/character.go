// Package character defines the record type served by the Rick and Morty
// character API and the wire shapes used to decode it.
package character

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PageSize is the fixed number of records the API returns per full page.
// A shorter page means the collection is exhausted.
const PageSize = 20

// Status is the life status of a character.
type Status string

const (
	// StatusAlive marks a living character.
	StatusAlive Status = "Alive"

	// StatusDead marks a dead character.
	StatusDead Status = "Dead"

	// StatusUnknown is used when the API does not know the status.
	StatusUnknown Status = "unknown"
)

// ParseStatus converts an API status value to a Status.
// Matching is case-insensitive; anything else is an error.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alive":
		return StatusAlive, nil
	case "dead":
		return StatusDead, nil
	case "unknown":
		return StatusUnknown, nil
	default:
		return "", fmt.Errorf("unknown character status %q", s)
	}
}

// UnmarshalJSON implements json.Unmarshaler and rejects unknown statuses.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Character is a single record from /api/character.
// Records are treated as immutable once fetched.
type Character struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Species string `json:"species"`
	Image   string `json:"image"`
}

// Info is the pagination envelope returned alongside a page of results.
type Info struct {
	Count int    `json:"count"`
	Pages int    `json:"pages"`
	Next  string `json:"next"`
	Prev  string `json:"prev"`
}

// PageResponse is the body of GET /api/character?page=N.
type PageResponse struct {
	Info    Info        `json:"info"`
	Results []Character `json:"results"`
}

// ErrorResponse is the body the API sends with non-2xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DecodePage decodes a page body. A body without a results array is
// rejected, since an empty page and a malformed body must not look alike.
func DecodePage(data []byte) (*PageResponse, error) {
	var envelope struct {
		Info    Info             `json:"info"`
		Results *json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if envelope.Results == nil {
		return nil, fmt.Errorf("decode page: missing results")
	}

	var results []Character
	if err := json.Unmarshal(*envelope.Results, &results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	if results == nil {
		results = []Character{}
	}

	return &PageResponse{Info: envelope.Info, Results: results}, nil
}

// Decode decodes a single character body.
func Decode(data []byte) (Character, error) {
	var c Character
	if err := json.Unmarshal(data, &c); err != nil {
		return Character{}, fmt.Errorf("decode character: %w", err)
	}
	if c.ID == 0 {
		return Character{}, fmt.Errorf("decode character: missing id")
	}
	return c, nil
}
