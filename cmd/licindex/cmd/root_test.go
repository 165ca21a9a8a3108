package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licindex/licindex/internal/source"
)

// writeTestConfig writes a minimal config pointing every store at a
// temp data dir and returns its path.
func writeTestConfig(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "licindex.yaml")
	content := fmt.Sprintf("version: 1\ndata_dir: %s\n", dir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	return dir, cfgPath
}

// runCommand executes the root command with args and returns its output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

const sourceSchema = `
CREATE TABLE licitacion (
	id INTEGER PRIMARY KEY,
	scraper TEXT, idexterno TEXT, referencia TEXT, objeto TEXT, agencia TEXT,
	oficina TEXT, link TEXT, pais TEXT, rubro TEXT, subrubro TEXT, tipo TEXT,
	tipo_id INTEGER, tipo_cliente_id INTEGER, contacto TEXT, observaciones TEXT,
	categoria TEXT, attachs INTEGER, divisa TEXT, monto TEXT, visible INTEGER,
	publicado TEXT, actualizado TEXT, apertura TEXT, cierre TEXT, cargado TEXT, editado TEXT
);
CREATE TABLE pais (id INTEGER PRIMARY KEY, nombre TEXT);
CREATE TABLE tag (id INTEGER PRIMARY KEY, descripcion TEXT);
CREATE TABLE licitacion_tag (licitacion_id INTEGER, tag_id INTEGER);
CREATE TABLE licitacion_mercado (licitacion_id INTEGER, mercado_id INTEGER);
CREATE TABLE tasa_cambio (simbolo TEXT PRIMARY KEY, tasa REAL);
CREATE TABLE tipo_licitacion (id INTEGER PRIMARY KEY, es_ar INTEGER, pt_br INTEGER, en_us INTEGER);
`

// seedSource creates the source database under dir with one visible
// publication.
func seedSource(t *testing.T, dir string, id int64) {
	t.Helper()
	src, err := source.NewSQLSource(filepath.Join(dir, "source.db"))
	require.NoError(t, err)
	defer func() { require.NoError(t, src.Close()) }()

	_, err = src.DB().Exec(sourceSchema)
	require.NoError(t, err)
	_, err = src.DB().Exec(`
		INSERT INTO licitacion (id, scraper, objeto, agencia, visible, editado)
		VALUES (?, 'comprar', 'Provisión de insumos médicos', 'Ministerio de Salud', 1,
		        '2026-03-01 10:00:00')`, id)
	require.NoError(t, err)
}

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// Then: every surface is registered
	for _, name := range []string{"serve", "index", "search", "jobs", "config", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_NoArgsShowsHelp(t *testing.T) {
	out, err := runCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "licindex")
	assert.Contains(t, out, "Available Commands")
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := runCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "licindex version")
}
