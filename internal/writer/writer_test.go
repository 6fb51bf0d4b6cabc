package writer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/rirstats/pkg/logging"
	"github.com/agentstation/rirstats/pkg/records"
)

func sampleStats(t *testing.T, registry string) *records.Stats {
	t.Helper()
	s := records.NewStats("nro")
	r, err := records.New(records.SourceStats, registry, "AU", records.KindIPv4, "1.0.0.0", "256", "20110811", "assigned", "")
	require.NoError(t, err)
	s.Add(r)
	s.Headers = []records.Header{{Version: "2.3", Registry: "nro", Serial: "20160301", Records: "1", StartDate: "19850701", EndDate: "20160301", UTCOffset: "+0000"}}
	s.GenerateSummary()
	return s
}

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, sampleStats(t, "apnic")))
	assert.Equal(t, strings.Join([]string{
		"2.3|nro|20160301|1|19850701|20160301|+0000",
		"nro|*|asn|*|0|summary",
		"nro|*|ipv4|*|1|summary",
		"nro|*|ipv6|*|0|summary",
		"apnic|AU|ipv4|1.0.0.0|256|20110811|assigned||e-stats",
	}, "\n")+"\n", buf.String())
}

func TestWriteCreatesFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "stats")
	w := New(WithFolder(dir))

	require.NoError(t, w.Write(context.Background(), sampleStats(t, "apnic")))
	data, err := os.ReadFile(filepath.Join(dir, DefaultFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "apnic|AU|ipv4")

	_, err = os.Stat(w.Path() + tmpSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteBacksUpPrevious(t *testing.T) {
	dir := t.TempDir()
	w := New(WithFolder(dir), WithFile("combined"), WithBackup(true), WithBackupFormat("20060102"))

	target := w.Path()
	require.NoError(t, os.WriteFile(target, []byte("old\n"), 0o600))
	mtime := time.Date(2015, 12, 24, 8, 0, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(target, mtime, mtime))

	require.NoError(t, w.Write(context.Background(), sampleStats(t, "arin")))

	backup := target + ".20151224"
	old, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(old))

	info, err := os.Stat(backup)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime))

	cur, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(cur), "arin|AU|ipv4")
}

func TestWriteRemovesStaleTemp(t *testing.T) {
	dir := t.TempDir()
	w := New(WithFolder(dir))
	require.NoError(t, os.WriteFile(w.Path()+tmpSuffix, []byte("partial"), 0o644))

	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	require.NoError(t, w.Write(ctx, sampleStats(t, "lacnic")))

	assert.True(t, tl.Contains("Cleaning up"))
	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "partial")
}

func TestWriteWithoutBackupOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := New(WithFolder(dir))
	require.NoError(t, os.WriteFile(w.Path(), []byte("old"), 0o644))

	require.NoError(t, w.Write(context.Background(), sampleStats(t, "ripencc")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDefaults(t *testing.T) {
	o := Defaults().Apply(WithFolder(""), WithFile(""), WithBackupFormat(""))
	assert.Equal(t, ".", o.Folder())
	assert.Equal(t, DefaultFile, o.File())
	assert.Equal(t, DefaultBackupFormat, o.BackupFormat())
	assert.False(t, o.Backup())
}
