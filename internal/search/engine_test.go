package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licindex/licindex/internal/store"
)

// newTestEngine creates an engine over an in-memory index seeded with a
// small corpus covering the filter dimensions.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	idx, err := store.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	docs := []store.Document{
		{
			"id": int64(1), "objeto": "Construcción de hospital regional",
			"agencia": "Ministerio de Salud", "pais_id": int64(7), "pais_nombre": "Chile",
			"tag_ids": []int64{3}, "visible": true, "vigente": true,
			"apertura": "2026-03-10 12:00:00", "editado": "2026-02-03 08:00:00",
		},
		{
			"id": int64(2), "objeto": "Compra de ambulancias",
			"agencia": "Ministerio de Salud", "pais_id": int64(4), "pais_nombre": "Perú",
			"tag_ids": []int64{3, 9}, "visible": true, "vigente": false,
			"apertura": "2025-11-01 12:00:00", "editado": "2026-02-02 08:00:00",
		},
		{
			"id": int64(3), "objeto": "Reparación de puente",
			"agencia": "MOP", "pais_id": int64(7), "pais_nombre": "Chile",
			"tag_ids": []int64{9}, "visible": true, "vigente": true,
			"apertura": "2026-04-01 12:00:00", "editado": "2026-02-01 08:00:00",
		},
		{
			// Hidden record: reachable by no parameter combination.
			"id": int64(4), "objeto": "Construcción de hospital secreto",
			"agencia": "Ministerio de Salud", "pais_id": int64(7), "pais_nombre": "Chile",
			"tag_ids": []int64{3}, "visible": false, "vigente": true,
			"apertura": "2026-03-10 12:00:00", "editado": "2026-02-04 08:00:00",
		},
	}
	res, err := idx.BulkUpsert(context.Background(), docs)
	require.NoError(t, err)
	require.Equal(t, 4, res.Indexed)

	engine, err := NewEngine(EngineDependencies{Index: idx})
	require.NoError(t, err)
	return engine
}

func ids(page *ResultPage) []int64 {
	out := make([]int64, 0, len(page.Publicaciones))
	for _, doc := range page.Publicaciones {
		out = append(out, doc.ID())
	}
	return out
}

func TestEngine_EmptyParamsReturnsVisibleOnly(t *testing.T) {
	// Given: a corpus with one hidden record
	e := newTestEngine(t)

	// When: searching with no filters
	page, err := e.Search(context.Background(), Params{})
	require.NoError(t, err)

	// Then: hidden records never appear, newest edits first
	assert.Equal(t, uint64(3), page.Total)
	assert.Equal(t, []int64{1, 2, 3}, ids(page))
	assert.Equal(t, 1, page.Pagina)
	assert.Equal(t, 1, page.Paginas)
}

func TestEngine_FreeTextMatchesAcrossFields(t *testing.T) {
	e := newTestEngine(t)

	page, err := e.Search(context.Background(), Params{Search: "hospital"})
	require.NoError(t, err)

	// The hidden hospital record is filtered out by visibility.
	assert.Equal(t, []int64{1}, ids(page))
}

func TestEngine_CountryByIDAndByName(t *testing.T) {
	e := newTestEngine(t)

	byID, err := e.Search(context.Background(), Params{Pais: "7"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(byID))

	byName, err := e.Search(context.Background(), Params{Pais: "Perú"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(byName))

	all, err := e.Search(context.Background(), Params{Pais: "all"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), all.Total)
}

func TestEngine_UserTagMembership(t *testing.T) {
	e := newTestEngine(t)

	page, err := e.Search(context.Background(), Params{
		UserTagIDs: []int64{9},
		FilterMode: FilterModeUserTags,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(page))
}

func TestEngine_OnlyCurrent(t *testing.T) {
	e := newTestEngine(t)

	page, err := e.Search(context.Background(), Params{SoloVigentes: "1"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(page))
}

func TestEngine_AperturaRange(t *testing.T) {
	e := newTestEngine(t)

	page, err := e.Search(context.Background(), Params{
		AperturaFr: "01/03/2026",
		AperturaTo: "31/03/2026",
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(page))
}

func TestEngine_ExcludeExpiredWithExplicitZeroSoloVigentes(t *testing.T) {
	e := newTestEngine(t)

	// An explicit soloVigentes=0 does not reopen the expired set once
	// incluirVencidos=0 asked for current publications only.
	page, err := e.Search(context.Background(), Params{
		IncluirVencidos: "0",
		SoloVigentes:    "0",
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(page))
}

func TestEngine_AperturaUpperBoundLegacyDateCoversWholeDay(t *testing.T) {
	e := newTestEngine(t)

	// A Y-m-d upper bound spans to the end of that day; a publication
	// opening at noon still falls inside.
	page, err := e.Search(context.Background(), Params{AperturaTo: "2026-03-10"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(page))
}

func TestEngine_Pagination(t *testing.T) {
	e := newTestEngine(t)

	// When: paging one document at a time
	first, err := e.Search(context.Background(), Params{Page: 1, PageSize: 1})
	require.NoError(t, err)
	second, err := e.Search(context.Background(), Params{Page: 2, PageSize: 1})
	require.NoError(t, err)

	// Then: the envelope frames the full result set
	assert.Equal(t, uint64(3), first.Total)
	assert.Equal(t, 3, first.Paginas)
	assert.Equal(t, []int64{1}, ids(first))
	assert.Equal(t, []int64{2}, ids(second))
	assert.Equal(t, 2, second.Pagina)
}

func TestEngine_PageBeyondEnd(t *testing.T) {
	e := newTestEngine(t)

	page, err := e.Search(context.Background(), Params{Page: 9, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Publicaciones)
	assert.Equal(t, uint64(3), page.Total)
	assert.Equal(t, 1, page.Paginas)
}
