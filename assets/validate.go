package assets

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
)

const (
	maxNameLength     = 256
	minNameLength     = 2
	maxHeadlineLength = 256
	maxNoteLength     = 8000
	maxContentLength  = 65535
	countryCodeLength = 3
	minTRL            = 1
	maxTRL            = 9
)

// FieldError is a single rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field problem for one resource so forms can show them inline.
type ValidationError struct {
	Type   Type
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Type.Info().Singular, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return apperrors.ErrValidation }

type fieldErrors []FieldError

func (fe *fieldErrors) add(field, format string, args ...any) {
	*fe = append(*fe, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (fe *fieldErrors) length(field, value string, lo, hi int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n < lo:
		fe.add(field, "must be at least %d characters", lo)
	case n > hi:
		fe.add(field, "must be at most %d characters", hi)
	}
}

// Validate checks r against the rules for kind t.
func Validate(t Type, r Resource) error {
	if !t.Valid() {
		return fmt.Errorf("%w: asset type %d", apperrors.ErrUnknownType, int(t))
	}

	var errs fieldErrors
	errs.length("name", r.Name, minNameLength, maxNameLength)
	validateContent(&errs, "content", r.Content)
	validateContent(&errs, "description", r.Description)

	for i, note := range r.Note {
		if utf8.RuneCountInString(note) > maxNoteLength {
			errs.add(fmt.Sprintf("note[%d]", i), "must be at most %d characters", maxNoteLength)
		}
	}
	for i, loc := range r.Location {
		if loc.Address != nil && loc.Address.Country != "" && utf8.RuneCountInString(loc.Address.Country) != countryCodeLength {
			errs.add(fmt.Sprintf("location[%d].address.country", i), "must be an ISO 3166-1 alpha-3 code")
		}
	}
	for i, m := range r.Media {
		if m.ContentURL == "" {
			errs.add(fmt.Sprintf("media[%d].content_url", i), "is required")
		}
		if m.TechnologyReadinessLevel != nil && (*m.TechnologyReadinessLevel < minTRL || *m.TechnologyReadinessLevel > maxTRL) {
			errs.add(fmt.Sprintf("media[%d].technology_readiness_level", i), "must be between %d and %d", minTRL, maxTRL)
		}
	}

	switch t {
	case News:
		errs.length("headline", r.ExtraString("headline"), 1, maxHeadlineLength)
		if r.Content == nil || strings.TrimSpace(r.Content.Plain) == "" {
			errs.add("content.plain", "is required")
		}
	case Events:
		if r.ExtraString("mode") == "" {
			errs.add("mode", "is required")
		}
	case Publications:
		if isbn := r.ExtraString("isbn"); isbn != "" {
			errs.length("isbn", isbn, 10, 13)
		}
		if issn := r.ExtraString("issn"); issn != "" && utf8.RuneCountInString(issn) != 8 {
			errs.add("issn", "must be exactly 8 characters")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Type: t, Fields: errs}
	}
	return nil
}

func validateContent(errs *fieldErrors, field string, c *Content) {
	if c == nil {
		return
	}
	if utf8.RuneCountInString(c.Plain) > maxContentLength {
		errs.add(field+".plain", "must be at most %d characters", maxContentLength)
	}
	if utf8.RuneCountInString(c.HTML) > maxContentLength {
		errs.add(field+".html", "must be at most %d characters", maxContentLength)
	}
}
