// Package source reads publications from the relational store. It is the
// read-only upstream of the denormalizer: one correlated query flattens a
// publication and its joined collections into a single row.
package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/licindex/licindex/internal/errors"
)

// Row is one publication joined with all of its related collections.
// Nullable columns stay nullable here; the denormalizer decides what is
// present and what is omitted.
type Row struct {
	ID            int64
	Scraper       sql.NullString
	IDExterno     sql.NullString
	Referencia    sql.NullString
	Objeto        sql.NullString
	Agencia       sql.NullString
	Oficina       sql.NullString
	Link          sql.NullString
	Pais          sql.NullString
	Rubro         sql.NullString
	Subrubro      sql.NullString
	Tipo          sql.NullString
	TipoID        sql.NullInt64
	TipoClienteID sql.NullInt64
	Contacto      sql.NullString
	Observaciones sql.NullString
	Categoria     sql.NullString
	Attachs       sql.NullInt64
	DivisaISO     sql.NullString

	// Monto arrives either numeric or as a localized string; the raw
	// driver value is preserved for the money parser.
	Monto any

	Visible     sql.NullBool
	Publicado   sql.NullString
	Actualizado sql.NullString
	Apertura    sql.NullString
	Cierre      sql.NullString
	Cargado     sql.NullString
	Editado     sql.NullString

	// Delimited aggregates from the one-to-many joins.
	TagIDs     sql.NullString // "3,9,9"
	TagPairs   sql.NullString // "3:salud,9:obras"
	MercadoIDs sql.NullString

	PaisID        sql.NullInt64
	PaisNombre    sql.NullString
	TasaCambioUSD sql.NullFloat64
	TipoEsAR      sql.NullInt64
	TipoPtBR      sql.NullInt64
	TipoEnUS      sql.NullInt64

	// Vigente is computed in SQL against the current UTC time.
	Vigente bool
}

// DataSource is the read-only publications collaborator.
type DataSource interface {
	// FetchWithJoins returns one publication with all relations resolved,
	// or a NotFound-coded error.
	FetchWithJoins(ctx context.Context, id int64) (*Row, error)

	// ListChangedSince returns ids of visible publications edited strictly
	// after the given timestamp, newest first. A non-empty scraper narrows
	// to that upstream source.
	ListChangedSince(ctx context.Context, since string, scraper string, limit int) ([]int64, error)

	// ListAllIDs pages the full visible id space in ascending id order.
	ListAllIDs(ctx context.Context, pageSize, offset int) ([]int64, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// SQLSource implements DataSource on SQLite.
type SQLSource struct {
	db *sql.DB
}

// Verify interface implementation at compile time
var _ DataSource = (*SQLSource)(nil)

// NewSQLSource opens the publications database at dsn. An empty dsn opens
// an in-memory database for testing.
func NewSQLSource(dsn string) (*SQLSource, error) {
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return &SQLSource{db: db}, nil
}

// DB exposes the underlying handle for seeding in tests and tools.
func (s *SQLSource) DB() *sql.DB {
	return s.db
}

// fetchQuery correlates the publication with its tags, markets, country,
// exchange rate and localized type in one read. The country join matches
// by id when the raw value is all digits, by display name otherwise.
const fetchQuery = `
SELECT l.id, l.scraper, l.idexterno, l.referencia, l.objeto, l.agencia, l.oficina,
       l.link, l.pais, l.rubro, l.subrubro, l.tipo, l.tipo_id, l.tipo_cliente_id,
       l.contacto, l.observaciones, l.categoria, l.attachs, l.divisa, l.monto,
       l.visible, l.publicado, l.actualizado, l.apertura, l.cierre, l.cargado, l.editado,
       (SELECT group_concat(lt.tag_id) FROM licitacion_tag lt WHERE lt.licitacion_id = l.id),
       (SELECT group_concat(t.id || ':' || COALESCE(t.descripcion, ''))
          FROM licitacion_tag lt2 JOIN tag t ON t.id = lt2.tag_id
         WHERE lt2.licitacion_id = l.id),
       (SELECT group_concat(lm.mercado_id) FROM licitacion_mercado lm WHERE lm.licitacion_id = l.id),
       p.id, p.nombre,
       tc.tasa,
       tl.es_ar, tl.pt_br, tl.en_us,
       CASE WHEN l.apertura IS NOT NULL AND l.apertura >= datetime('now') THEN 1 ELSE 0 END
  FROM licitacion l
  LEFT JOIN pais p
    ON CASE WHEN l.pais IS NOT NULL AND l.pais != '' AND l.pais NOT GLOB '*[^0-9]*'
            THEN p.id = CAST(l.pais AS INTEGER)
            ELSE p.nombre = l.pais
       END
  LEFT JOIN tasa_cambio tc ON tc.simbolo = l.divisa
  LEFT JOIN tipo_licitacion tl ON tl.id = l.tipo_id
 WHERE l.id = ?`

// FetchWithJoins returns one fully joined publication row.
func (s *SQLSource) FetchWithJoins(ctx context.Context, id int64) (*Row, error) {
	var r Row
	err := s.db.QueryRowContext(ctx, fetchQuery, id).Scan(
		&r.ID, &r.Scraper, &r.IDExterno, &r.Referencia, &r.Objeto, &r.Agencia, &r.Oficina,
		&r.Link, &r.Pais, &r.Rubro, &r.Subrubro, &r.Tipo, &r.TipoID, &r.TipoClienteID,
		&r.Contacto, &r.Observaciones, &r.Categoria, &r.Attachs, &r.DivisaISO, &r.Monto,
		&r.Visible, &r.Publicado, &r.Actualizado, &r.Apertura, &r.Cierre, &r.Cargado, &r.Editado,
		&r.TagIDs, &r.TagPairs, &r.MercadoIDs,
		&r.PaisID, &r.PaisNombre,
		&r.TasaCambioUSD,
		&r.TipoEsAR, &r.TipoPtBR, &r.TipoEnUS,
		&r.Vigente,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(id)
	}
	if err != nil {
		return nil, errors.SourceUnavailable(fmt.Sprintf("failed to fetch publication %d", id), err)
	}

	return &r, nil
}

// ListChangedSince returns visible publication ids edited strictly after
// since, newest edits first.
func (s *SQLSource) ListChangedSince(ctx context.Context, since string, scraper string, limit int) ([]int64, error) {
	q := `SELECT id FROM licitacion WHERE visible = 1 AND editado > ?`
	args := []any{since}
	if scraper != "" {
		q += ` AND scraper = ?`
		args = append(args, scraper)
	}
	q += ` ORDER BY editado DESC, id DESC LIMIT ?`
	args = append(args, limit)

	return s.queryIDs(ctx, q, args...)
}

// ListAllIDs pages the visible id space in ascending id order.
func (s *SQLSource) ListAllIDs(ctx context.Context, pageSize, offset int) ([]int64, error) {
	return s.queryIDs(ctx,
		`SELECT id FROM licitacion WHERE visible = 1 ORDER BY id ASC LIMIT ? OFFSET ?`,
		pageSize, offset)
}

// Ping reports whether the store is reachable.
func (s *SQLSource) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.SourceUnavailable("publications database unreachable", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

func (s *SQLSource) queryIDs(ctx context.Context, q string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.SourceUnavailable("failed to list publication ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.SourceUnavailable("failed to scan publication id", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
