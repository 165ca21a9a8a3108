package denorm

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/licindex/licindex/internal/source"
	"github.com/licindex/licindex/internal/store"
)

// Tag is one descriptor attached to a publication.
type Tag struct {
	ID          int64  `json:"id"`
	Descripcion string `json:"descripcion"`
}

// Denormalizer turns a publication id into a flat, self-contained search
// document by reading the joined row from the data source.
type Denormalizer struct {
	src source.DataSource
	log *slog.Logger
}

// New creates a Denormalizer reading from src.
func New(src source.DataSource, log *slog.Logger) *Denormalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Denormalizer{src: src, log: log}
}

// Denormalize fetches publication id with all relations and flattens it
// into a sparse document. A missing publication yields a NotFound-coded
// error; an unreachable source yields a SourceUnavailable-coded error.
func (d *Denormalizer) Denormalize(ctx context.Context, id int64) (store.Document, error) {
	row, err := d.src.FetchWithJoins(ctx, id)
	if err != nil {
		return nil, err
	}

	b := NewDocumentBuilder()
	b.Set("id", row.ID)
	b.SetString("scraper", row.Scraper)
	b.SetString("idexterno", row.IDExterno)
	b.SetString("referencia", row.Referencia)
	b.SetString("objeto", row.Objeto)
	b.SetString("agencia", row.Agencia)
	b.SetString("oficina", row.Oficina)
	b.SetString("link", row.Link)
	b.SetString("pais", row.Pais)
	b.SetString("rubro", row.Rubro)
	b.SetString("subrubro", row.Subrubro)
	b.SetString("tipo", row.Tipo)
	b.SetInt("tipo_id", row.TipoID)
	b.SetInt("tipo_cliente_id", row.TipoClienteID)
	b.SetString("contacto", row.Contacto)
	b.SetString("observaciones", row.Observaciones)
	b.SetString("categoria", row.Categoria)
	b.SetInt("attachs", row.Attachs)
	b.SetString("divisaSimboloISO", row.DivisaISO)

	b.SetDate("publicado", row.Publicado)
	b.SetDate("actualizado", row.Actualizado)
	b.SetDate("apertura", row.Apertura)
	b.SetDate("cierre", row.Cierre)
	b.SetDate("cargado", row.Cargado)
	b.SetDate("editado", row.Editado)

	if monto, ok, err := ParseAmount(row.Monto); err != nil {
		d.log.Warn("unparsable_amount",
			slog.Int64("publication_id", row.ID),
			slog.String("error", err.Error()))
	} else if ok {
		b.Set("monto", monto)
	}

	b.SetBool("visible", row.Visible)

	// Array fields are always present, never null
	b.Set("tag_ids", splitIDs(row.TagIDs.String))
	b.Set("tags", parseTagPairs(row.TagPairs.String))
	b.Set("mercado_ids", splitIDs(row.MercadoIDs.String))

	b.SetInt("pais_id", row.PaisID)
	b.SetString("pais_nombre", row.PaisNombre)

	if localized := localizedTypeIDs(row); len(localized) > 0 {
		b.Set("tipo_licit_ids", localized)
	}

	rate := 0.0
	if row.TasaCambioUSD.Valid {
		rate = row.TasaCambioUSD.Float64
	}
	b.Set("tasaCambioUSD", rate)
	b.Set("vigente", row.Vigente)

	return b.Build(), nil
}

// splitIDs splits a delimited aggregate ("3,9,x,9") into ids: non-numeric
// fragments are discarded and duplicates removed, keeping first-appearance
// order. Always returns a non-nil slice.
func splitIDs(aggregate string) []int64 {
	ids := []int64{}
	if aggregate == "" {
		return ids
	}

	seen := make(map[int64]struct{})
	for _, frag := range strings.Split(aggregate, ",") {
		frag = strings.TrimSpace(frag)
		id, err := strconv.ParseInt(frag, 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}

// parseTagPairs splits an "id:descripcion" aggregate into tags. Fragments
// without a separator or with a non-numeric id are discarded; missing
// descriptions become "".
func parseTagPairs(aggregate string) []Tag {
	tags := []Tag{}
	if aggregate == "" {
		return tags
	}

	seen := make(map[int64]struct{})
	for _, frag := range strings.Split(aggregate, ",") {
		idStr, desc, found := strings.Cut(frag, ":")
		if !found {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		tags = append(tags, Tag{ID: id, Descripcion: desc})
	}

	return tags
}

// localizedTypeIDs builds the per-locale type id sub-object. The map is
// sparse like everything else and dropped entirely when no locale is set.
func localizedTypeIDs(row *source.Row) map[string]any {
	out := map[string]any{}
	if row.TipoEsAR.Valid {
		out["esAR"] = row.TipoEsAR.Int64
	}
	if row.TipoPtBR.Valid {
		out["ptBR"] = row.TipoPtBR.Int64
	}
	if row.TipoEnUS.Valid {
		out["enUS"] = row.TipoEnUS.Int64
	}
	return out
}
