// Package denorm flattens a publication and its joined relations into a
// sparse search document. Absent data is omitted entirely; no key is ever
// written with a null value.
package denorm

import (
	"database/sql"
	"strings"

	"github.com/licindex/licindex/internal/store"
)

// DocumentBuilder assembles a sparse document. Keys are inserted only
// when a value is present, which makes the omission invariant structural
// instead of a post-hoc filter.
type DocumentBuilder struct {
	doc store.Document
}

// NewDocumentBuilder returns an empty builder.
func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{doc: store.Document{}}
}

// Set writes a value unconditionally. Use for fields that are always
// present (id, vigente, arrays, defaults).
func (b *DocumentBuilder) Set(key string, v any) *DocumentBuilder {
	b.doc[key] = v
	return b
}

// SetString writes the value only when valid and non-empty.
func (b *DocumentBuilder) SetString(key string, v sql.NullString) *DocumentBuilder {
	if v.Valid && v.String != "" {
		b.doc[key] = v.String
	}
	return b
}

// SetInt writes the value only when valid.
func (b *DocumentBuilder) SetInt(key string, v sql.NullInt64) *DocumentBuilder {
	if v.Valid {
		b.doc[key] = v.Int64
	}
	return b
}

// SetBool writes the value only when valid.
func (b *DocumentBuilder) SetBool(key string, v sql.NullBool) *DocumentBuilder {
	if v.Valid {
		b.doc[key] = v.Bool
	}
	return b
}

// SetDate writes the value unless it is absent or a zero sentinel.
func (b *DocumentBuilder) SetDate(key string, v sql.NullString) *DocumentBuilder {
	if s, ok := sanitizeDate(v); ok {
		b.doc[key] = s
	}
	return b
}

// Build returns the assembled document.
func (b *DocumentBuilder) Build() store.Document {
	return b.doc
}

// sanitizeDate rejects empty values and the source's zero-date sentinel
// ("0000-00-00", with or without a time part). Anything else passes
// through as-is; source dates are already canonical strings.
func sanitizeDate(v sql.NullString) (string, bool) {
	if !v.Valid {
		return "", false
	}
	s := strings.TrimSpace(v.String)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return "", false
	}
	return s, true
}
