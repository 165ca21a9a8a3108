// Package search is the synchronous query path: ad-hoc filter
// parameters are compiled into a structured boolean query, executed
// against the index, and the hits reshaped into the legacy page
// envelope. Parameter and field names keep the legacy Spanish schema
// because the submitting layer is fixed.
package search

import "strings"

// Sentinel and mode values carried by legacy callers.
const (
	// AllSentinel in a categorical filter means "ignore this filter".
	AllSentinel = "all"

	// FilterModeUserTags requests the caller-selected tag membership
	// filter.
	FilterModeUserTags = "user_tags"
)

// Params is the ad-hoc filter parameter set of one search request.
// Zero values impose no constraint.
type Params struct {
	// Search is the free-text term matched across the text fields.
	Search string `json:"search,omitempty"`

	// Objeto and Agencia are field-scoped text filters.
	Objeto  string `json:"objeto,omitempty"`
	Agencia string `json:"agencia,omitempty"`

	// Pais is a categorical filter: "all" or empty ignores it, an
	// integer matches pais_id, anything else matches pais_nombre.
	Pais string `json:"pais,omitempty"`

	// Rubro is a categorical filter on tag ids; non-numeric values are
	// ignored.
	Rubro string `json:"rubro,omitempty"`

	// UserTagIDs is the caller-selected tag set, applied only when
	// FilterMode requests it.
	UserTagIDs []int64 `json:"user_tag_ids,omitempty"`
	FilterMode string  `json:"filter_mode,omitempty"`

	// AperturaFr and AperturaTo bound the opening date, each
	// independently optional, in dd/mm/yyyy form.
	AperturaFr string `json:"apertura_fr,omitempty"`
	AperturaTo string `json:"apertura_to,omitempty"`

	// IncluirVencidos and SoloVigentes are the boolean-ish visibility
	// toggles ("0"/"1"); "only current" takes precedence when set.
	IncluirVencidos string `json:"incluirVencidos,omitempty"`
	SoloVigentes    string `json:"soloVigentes,omitempty"`

	// Page is 1-based; PageSize falls back to the engine default.
	Page     int `json:"pagina,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

// normalized trims the text inputs in place and returns the params.
func (p Params) normalized() Params {
	p.Search = strings.TrimSpace(p.Search)
	p.Objeto = strings.TrimSpace(p.Objeto)
	p.Agencia = strings.TrimSpace(p.Agencia)
	p.Pais = strings.TrimSpace(p.Pais)
	p.Rubro = strings.TrimSpace(p.Rubro)
	p.AperturaFr = strings.TrimSpace(p.AperturaFr)
	p.AperturaTo = strings.TrimSpace(p.AperturaTo)
	return p
}
