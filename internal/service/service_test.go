package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licindex/licindex/internal/config"
	"github.com/licindex/licindex/internal/jobs"
	"github.com/licindex/licindex/internal/search"
	"github.com/licindex/licindex/internal/store"
)

const testSchema = `
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

// testConfig keeps every store in memory; only the lock touches the
// temp data dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func newService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	svc, err := New(cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Stop() })
	return svc
}

func TestNew_BuildsGraph(t *testing.T) {
	svc := newService(t, testConfig(t))

	assert.NotNil(t, svc.Registry())
	assert.NotNil(t, svc.Indexer())
	assert.NotNil(t, svc.Engine())
	assert.NotNil(t, svc.Reaper())
	assert.NotNil(t, svc.Source())
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, Options{})
	require.Error(t, err)
}

func TestStartStop_Lifecycle(t *testing.T) {
	svc := newService(t, testConfig(t))

	require.NoError(t, svc.Start(context.Background()))
	// Start is idempotent while running
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, svc.Stop())
	// Stop is idempotent too
	require.NoError(t, svc.Stop())
}

func TestStart_RefusesSecondInstance(t *testing.T) {
	// Given: a running service on a data dir
	cfg := testConfig(t)
	first := newService(t, cfg)
	require.NoError(t, first.Start(context.Background()))

	// When: a second service starts on the same data dir
	second := newService(t, cfg)
	err := second.Start(context.Background())

	// Then: the instance lock refuses it
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already runs")

	// And: the dir is usable again once the first instance stops
	require.NoError(t, first.Stop())
	third := newService(t, cfg)
	require.NoError(t, third.Start(context.Background()))
}

func TestStart_SkipLock(t *testing.T) {
	cfg := testConfig(t)
	first := newService(t, cfg)
	require.NoError(t, first.Start(context.Background()))

	second, err := New(cfg, Options{SkipLock: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Stop() })

	require.NoError(t, second.Start(context.Background()))
}

func TestSubmitJob_EndToEnd(t *testing.T) {
	// Given: a started service with one publication in the source
	svc := newService(t, testConfig(t))
	require.NoError(t, svc.Start(context.Background()))

	_, err := svc.Source().DB().Exec(testSchema)
	require.NoError(t, err)
	_, err = svc.Source().DB().Exec(`
		INSERT INTO licitacion (id, scraper, objeto, agencia, visible, editado)
		VALUES (7, 'comprar', 'Mantenimiento de rutas', 'Vialidad Nacional', 1,
		        '2026-03-01 09:00:00')`)
	require.NoError(t, err)

	// When: submitting a single-item job through the service
	jobID, err := svc.SubmitJob(context.Background(), jobs.SingleParams{PublicacionID: 7}, 0)
	require.NoError(t, err)

	// Then: the job runs on the pool and completes
	require.Eventually(t, func() bool {
		job, err := svc.Registry().Get(context.Background(), jobID)
		return err == nil && job.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	job, err := svc.Registry().Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, job.Status)
	assert.Equal(t, 1, job.Progress.Indexed)

	// And: the document is searchable through the engine
	page, err := svc.Engine().Search(context.Background(), search.Params{Search: "rutas"})
	require.NoError(t, err)
	require.Len(t, page.Publicaciones, 1)
	assert.EqualValues(t, 7, page.Publicaciones[0].ID())
}

func TestSubmitJob_InvalidParams(t *testing.T) {
	svc := newService(t, testConfig(t))
	require.NoError(t, svc.Start(context.Background()))

	_, err := svc.SubmitJob(context.Background(), jobs.SingleParams{}, 0)
	require.Error(t, err)
}
