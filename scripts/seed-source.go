//go:build ignore

// Package main seeds a synthetic publications database for local
// development and benchmarking.
// Usage: go run scripts/seed-source.go -rows 500 -output data/source.db
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var (
	numRows = flag.Int("rows", 500, "Number of publications to generate")
	output  = flag.String("output", "data/source.db", "Output database path")
	seed    = flag.Int64("seed", 42, "Random seed for reproducibility")
)

const schema = `
CREATE TABLE IF NOT EXISTS licitacion (
	id INTEGER PRIMARY KEY,
	scraper TEXT, idexterno TEXT, referencia TEXT, objeto TEXT, agencia TEXT,
	oficina TEXT, link TEXT, pais TEXT, rubro TEXT, subrubro TEXT, tipo TEXT,
	tipo_id INTEGER, tipo_cliente_id INTEGER, contacto TEXT, observaciones TEXT,
	categoria TEXT, attachs INTEGER, divisa TEXT, monto TEXT, visible INTEGER,
	publicado TEXT, actualizado TEXT, apertura TEXT, cierre TEXT, cargado TEXT, editado TEXT
);
CREATE TABLE IF NOT EXISTS pais (id INTEGER PRIMARY KEY, nombre TEXT);
CREATE TABLE IF NOT EXISTS tag (id INTEGER PRIMARY KEY, descripcion TEXT);
CREATE TABLE IF NOT EXISTS licitacion_tag (licitacion_id INTEGER, tag_id INTEGER);
CREATE TABLE IF NOT EXISTS licitacion_mercado (licitacion_id INTEGER, mercado_id INTEGER);
CREATE TABLE IF NOT EXISTS tasa_cambio (simbolo TEXT PRIMARY KEY, tasa REAL);
CREATE TABLE IF NOT EXISTS tipo_licitacion (id INTEGER PRIMARY KEY, es_ar INTEGER, pt_br INTEGER, en_us INTEGER);
`

var scrapers = []string{"comprar", "mercadopublico", "seace", "secop", "comprasnet"}

var objetos = []string{
	"Provisión de insumos médicos descartables",
	"Mantenimiento integral de rutas nacionales",
	"Adquisición de equipamiento informático",
	"Construcción de escuela primaria",
	"Servicio de limpieza de edificios públicos",
	"Compra de medicamentos oncológicos",
	"Renovación de flota de vehículos utilitarios",
	"Obras de saneamiento cloacal",
	"Suministro de energía eléctrica renovable",
	"Consultoría para modernización de sistemas",
}

var agencias = []string{
	"Ministerio de Salud",
	"Vialidad Nacional",
	"Ministerio de Educación",
	"Municipalidad de Córdoba",
	"Empresa Provincial de Energía",
	"Dirección General de Compras",
}

var paises = map[int64]string{
	1: "Argentina",
	2: "Chile",
	3: "Perú",
	4: "Colombia",
	5: "Brasil",
}

var divisas = []string{"ARS", "CLP", "PEN", "COP", "BRL", "USD"}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", *output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating schema: %v\n", err)
		os.Exit(1)
	}

	if err := seedReferenceData(db); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding reference data: %v\n", err)
		os.Exit(1)
	}

	if err := seedPublications(db, rng, *numRows); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding publications: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seeded %d publications into %s\n", *numRows, *output)
}

func seedReferenceData(db *sql.DB) error {
	for id, nombre := range paises {
		if _, err := db.Exec(`INSERT OR IGNORE INTO pais (id, nombre) VALUES (?, ?)`, id, nombre); err != nil {
			return err
		}
	}
	tags := []string{"salud", "obras", "informática", "educación", "energía", "transporte"}
	for i, desc := range tags {
		if _, err := db.Exec(`INSERT OR IGNORE INTO tag (id, descripcion) VALUES (?, ?)`, i+1, desc); err != nil {
			return err
		}
	}
	for _, simbolo := range divisas {
		tasa := 1.0
		if simbolo != "USD" {
			tasa = float64(100 + len(simbolo)*137)
		}
		if _, err := db.Exec(`INSERT OR IGNORE INTO tasa_cambio (simbolo, tasa) VALUES (?, ?)`, simbolo, tasa); err != nil {
			return err
		}
	}
	return nil
}

func seedPublications(db *sql.DB, rng *rand.Rand, n int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	const stamp = "2006-01-02 15:04:05"

	for i := 1; i <= n; i++ {
		paisID := int64(rng.Intn(len(paises)) + 1)
		publicado := base.Add(time.Duration(rng.Intn(120*24)) * time.Hour)
		apertura := publicado.Add(time.Duration(14+rng.Intn(30)) * 24 * time.Hour)
		editado := publicado.Add(time.Duration(rng.Intn(48)) * time.Hour)
		visible := 1
		if rng.Intn(20) == 0 {
			visible = 0
		}

		_, err := tx.Exec(`
			INSERT INTO licitacion (
				id, scraper, idexterno, referencia, objeto, agencia, pais,
				divisa, monto, visible, publicado, apertura, editado
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i,
			scrapers[rng.Intn(len(scrapers))],
			fmt.Sprintf("EXT-%06d", i),
			fmt.Sprintf("LIC-%d/2026", i),
			objetos[rng.Intn(len(objetos))],
			agencias[rng.Intn(len(agencias))],
			paisID,
			divisas[rng.Intn(len(divisas))],
			fmt.Sprintf("%d.%02d", 10000+rng.Intn(9000000), rng.Intn(100)),
			visible,
			publicado.Format(stamp),
			apertura.Format(stamp),
			editado.Format(stamp),
		)
		if err != nil {
			return err
		}

		// one or two tags each
		for _, tagID := range []int64{int64(rng.Intn(6) + 1), int64(rng.Intn(6) + 1)} {
			if _, err := tx.Exec(`INSERT INTO licitacion_tag (licitacion_id, tag_id) VALUES (?, ?)`, i, tagID); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}
