package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/rirstats/internal/metrics"
	"github.com/agentstation/rirstats/internal/parser"
	"github.com/agentstation/rirstats/internal/retriever"
	"github.com/agentstation/rirstats/internal/writer"
	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/logging"
	"github.com/agentstation/rirstats/pkg/merger"
	"github.com/agentstation/rirstats/pkg/resolver"
)

var files = map[string]string{
	"/apnic": `2|apnic|20160301|2|19850701|20160229|+1000
apnic|*|ipv4|*|1|summary
apnic|AU|ipv4|1.0.0.0|256|20110811|assigned
apnic|JP|asn|173|1|20020801|allocated
`,
	"/afrinic": `2.3|afrinic|20160301|1|19930301|20160229|+0000
afrinic|ZA|ipv4|1.0.0.0|512|20100101|allocated
`,
	"/iana": `iana|ZZ|ipv4|0.0.0.0|16777216|19810901|reserved|ietf
iana|ZZ|ipv4|1.0.0.0|16777216|20100101|allocated|apnic
`,
	"/swaps": `2.0.0.0 2.0.3.255 1024 19930901 ripencc
`,
}

type env struct {
	pipeline *Pipeline
	metrics  *metrics.Metrics
	server   *httptest.Server
	dir      string
	ctx      context.Context
	log      *logging.TestLogger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, ok := files[req.URL.Path]
		if !ok {
			http.NotFound(w, req)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	mock := clock.NewMock()
	mock.Set(time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC))

	m := metrics.New()
	res, err := resolver.New(resolver.WithObserver(m))
	require.NoError(t, err)
	mg, err := merger.New(merger.WithResolver(res), merger.WithClock(mock), merger.WithRecorder(m))
	require.NoError(t, err)

	dir := t.TempDir()
	p, err := New(
		WithRetriever(retriever.New(retriever.WithHTTPClient(srv.Client()), retriever.WithObserver(m))),
		WithParser(parser.New(parser.WithClock(mock))),
		WithMerger(mg),
		WithWriter(writer.New(writer.WithFolder(dir))),
		WithMetrics(m, filepath.Join(dir, "rirstats.prom")),
		WithCacheFile(filepath.Join(dir, "fetch.cache")),
	)
	require.NoError(t, err)

	tl := logging.NewTestLogger(t)
	return &env{pipeline: p, metrics: m, server: srv, dir: dir, ctx: logging.WithLogger(context.Background(), tl.Logger), log: tl}
}

func (e *env) inputs() Inputs {
	return Inputs{
		RIR: map[string]string{
			"apnic":   e.server.URL + "/apnic",
			"afrinic": e.server.URL + "/afrinic",
		},
		IANA:  e.server.URL + "/iana",
		Swaps: e.server.URL + "/swaps",
	}
}

func TestGenerate(t *testing.T) {
	e := newEnv(t)

	res, err := e.pipeline.Generate(e.ctx, e.inputs())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Metadata.Stats.Conflicts)
	assert.Equal(t, []string{"afrinic", "apnic", "iana", "rir-swap"}, res.Metadata.Sources)
	assert.True(t, e.log.Contains(`"operation":"generate"`))

	data, err := os.ReadFile(filepath.Join(e.dir, writer.DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"2.3|nro|20160301|5|19850701|20160301|+0000",
		"nro|*|asn|*|1|summary",
		"nro|*|ipv4|*|4|summary",
		"nro|*|ipv6|*|0|summary",
		"apnic|JP|asn|173|1|20020801|assigned||e-stats",
		"iana|ZZ|ipv4|0.0.0.0|16777216|19810901|ietf|ietf|iana",
		"apnic|AU|ipv4|1.0.0.0|256|20110811|assigned||e-stats",
		"afrinic|ZA|ipv4|1.0.1.0|256|20100101|assigned||e-stats",
		"ripencc|ZZ|ipv4|2.0.0.0|1024|20160301|available||rir-swap",
	}, "\n")+"\n", string(data))

	prom, err := os.ReadFile(filepath.Join(e.dir, "rirstats.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `rirstats_conflicts_total{kind="ipv4"} 1`)
	assert.Contains(t, string(prom), `rirstats_fetch_total{result="ok",source="apnic"} 1`)

	_, err = os.Stat(filepath.Join(e.dir, "fetch.cache"))
	assert.NoError(t, err)
}

func TestGenerateServesCachedSource(t *testing.T) {
	e := newEnv(t)
	in := e.inputs()
	_, err := e.pipeline.Merge(e.ctx, in)
	require.NoError(t, err)

	e.server.Close()
	res, err := e.pipeline.Merge(e.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Stats.Len())
}

func TestLoadFailsOnMissingSource(t *testing.T) {
	e := newEnv(t)
	in := e.inputs()
	in.RIR["lacnic"] = e.server.URL + "/lacnic"

	_, err := e.pipeline.Load(e.ctx, in)
	var fe *errors.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "lacnic", fe.Source)

	_, err = e.pipeline.Load(e.ctx, Inputs{})
	assert.True(t, errors.IsValidationError(err))
}

func TestDiffMergedFiles(t *testing.T) {
	e := newEnv(t)
	_, err := e.pipeline.Generate(e.ctx, e.inputs())
	require.NoError(t, err)

	current := filepath.Join(e.dir, writer.DefaultFile)
	previous := filepath.Join(e.dir, "previous")
	require.NoError(t, os.WriteFile(previous, []byte(strings.Join([]string{
		"2.3|nro|20160201|2|19850701|20160201|+0000",
		"apnic|JP|asn|173|1|20020801|assigned||e-stats",
		"arin|US|ipv4|1.0.0.0|512|20100101|assigned||e-stats",
	}, "\n")+"\n"), 0o644))

	cs, err := e.pipeline.Diff(e.ctx, current, previous)
	require.NoError(t, err)
	assert.Equal(t, merger.ChangesetSummary{Added: 4, Changed: 0, Removed: 1, TotalChanges: 5}, cs.Summary)

	same, err := e.pipeline.Diff(e.ctx, current, current)
	require.NoError(t, err)
	assert.True(t, same.IsEmpty())

	loaded, err := e.pipeline.LoadMerged(e.ctx, current)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Stats.Len())
}
