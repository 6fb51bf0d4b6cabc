// Package writer persists merged datasets to disk.
//
// A write never leaves a half written target: lines go to a temporary
// file that is synced and then renamed over the target. The previous
// file can be kept as a dated backup.
package writer

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/logging"
	"github.com/agentstation/rirstats/pkg/records"
)

// Defaults.
const (
	DefaultFile         = "combined-stat"
	DefaultBackupFormat = "20060102150405"

	tmpSuffix = ".tmp"
)

// Options is the configuration for a Writer.
type Options struct {
	folder       string
	file         string
	backup       bool
	backupFormat string
}

// Folder returns the output folder.
func (o *Options) Folder() string { return o.folder }

// File returns the output file name.
func (o *Options) File() string { return o.file }

// Backup reports whether an existing target is copied before it is replaced.
func (o *Options) Backup() bool { return o.backup }

// BackupFormat returns the time layout used in backup file names.
func (o *Options) BackupFormat() string { return o.backupFormat }

// Defaults returns the default writer options.
func Defaults() *Options {
	return &Options{
		folder:       ".",
		file:         DefaultFile,
		backupFormat: DefaultBackupFormat,
	}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a Writer.
type Option func(*Options)

// WithFolder sets the output folder.
func WithFolder(folder string) Option {
	return func(o *Options) {
		if folder != "" {
			o.folder = folder
		}
	}
}

// WithFile sets the output file name.
func WithFile(file string) Option {
	return func(o *Options) {
		if file != "" {
			o.file = file
		}
	}
}

// WithBackup enables or disables backups of the previous file.
func WithBackup(enabled bool) Option {
	return func(o *Options) { o.backup = enabled }
}

// WithBackupFormat sets the time layout of backup file names.
func WithBackupFormat(layout string) Option {
	return func(o *Options) {
		if layout != "" {
			o.backupFormat = layout
		}
	}
}

// Writer writes datasets to a target file.
type Writer struct {
	opts *Options
}

// New creates a Writer.
func New(opts ...Option) *Writer {
	return &Writer{opts: Defaults().Apply(opts...)}
}

// Path returns the target file path.
func (w *Writer) Path() string {
	return filepath.Join(w.opts.folder, w.opts.file)
}

func (w *Writer) tmpPath() string {
	return w.Path() + tmpSuffix
}

// Write replaces the target file with the lines of stats.
func (w *Writer) Write(ctx context.Context, stats *records.Stats) error {
	logger := logging.FromContext(ctx)

	if err := w.ensureFolder(ctx); err != nil {
		return err
	}

	target, tmp := w.Path(), w.tmpPath()
	if w.opts.backup {
		if _, err := os.Stat(target); err == nil {
			if err := w.backupFile(ctx, target); err != nil {
				return err
			}
		}
	}

	if _, err := os.Stat(tmp); err == nil {
		logger.Warn().Str("path", tmp).Msg("Last attempt to generate file failed. Cleaning up")
		if err := os.Remove(tmp); err != nil {
			return errors.WrapIO("remove", tmp, err)
		}
	}

	if err := writeFile(tmp, stats); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return errors.WrapIO("rename", target, err)
	}

	logger.Info().Str("path", target).Int("records", stats.Len()).Msg("Wrote merged stats")
	return nil
}

func (w *Writer) ensureFolder(ctx context.Context) error {
	if _, err := os.Stat(w.opts.folder); err == nil {
		return nil
	}
	logging.FromContext(ctx).Info().Str("folder", w.opts.folder).Msg("Output folder missing. Creating it")
	return errors.WrapIO("create", w.opts.folder, os.MkdirAll(w.opts.folder, 0o755))
}

// backupPath names the copy of a target by its modification time.
func (w *Writer) backupPath(target string, info os.FileInfo) string {
	return target + "." + info.ModTime().Format(w.opts.backupFormat)
}

func (w *Writer) backupFile(ctx context.Context, target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return errors.WrapIO("backup", target, err)
	}
	dst := w.backupPath(target, info)
	logging.FromContext(ctx).Info().Str("path", target).Str("backup", dst).Msg("File already present, backing it up")

	if err := copyFile(target, dst, info); err != nil {
		return errors.WrapIO("backup", target, err)
	}
	return nil
}

// copyFile copies src to dst keeping the mode and modification time.
// An existing dst is an error.
func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func writeFile(path string, stats *records.Stats) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := WriteTo(f, stats); err != nil {
		return errors.WrapIO("write", path, err)
	}
	if err := f.Sync(); err != nil {
		return errors.WrapIO("sync", path, err)
	}
	return errors.WrapIO("close", path, f.Close())
}

// WriteTo writes the lines of stats to w, one per line.
func WriteTo(w io.Writer, stats *records.Stats) error {
	bw := bufio.NewWriter(w)
	for _, line := range stats.Lines() {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
