package resolver

import (
	"regexp"
	"strings"
)

// SourceKind says how the content identifier was supplied.
type SourceKind string

const (
	SourceID  SourceKind = "id"
	SourceURL SourceKind = "url"
)

// ContentID is a canonical content identifier. Immutable once built.
type ContentID struct {
	ID     string
	Source SourceKind
}

var (
	contentIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	watchURLPattern  = regexp.MustCompile(`(?:v=|/shorts/|/embed/|/live/|youtu\.be/)([0-9A-Za-z_-]{11})`)
)

// ExtractContentID accepts either a raw 11-character id or the common
// URL shapes (watch, shorts, embed, live, short-link).
func ExtractContentID(input string) (ContentID, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return ContentID{}, ErrInvalidIdentifier
	}
	if contentIDPattern.MatchString(s) {
		return ContentID{ID: s, Source: SourceID}, nil
	}
	if m := watchURLPattern.FindStringSubmatch(s); len(m) == 2 {
		return ContentID{ID: m[1], Source: SourceURL}, nil
	}
	return ContentID{}, ErrInvalidIdentifier
}
