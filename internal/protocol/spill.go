package protocol

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// CleanupLogger gets informed when a spill file could not be removed.
type CleanupLogger interface {
	LogSpillCleanupError(path string, err error)
}

// TempFile is a disk backed byte sink. The backing file exists exactly while the TempFile is open.
type TempFile struct {
	path     string
	f        *os.File
	released bool
}

// CreateTempFile creates a new, uniquely named file in dir (or the platform temp dir when empty).
// An existing file is never reused: a name collision fails instead of truncating.
func CreateTempFile(dir string) (*TempFile, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, uuid.NewString()+".bserve.tmp")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "create spill file %q", path)
	}

	return &TempFile{path: path, f: f}, nil
}

// Name returns the path of the backing file.
func (t *TempFile) Name() string { return t.path }

func (t *TempFile) Write(p []byte) (int, error) { return t.f.Write(p) }
func (t *TempFile) Read(p []byte) (int, error)  { return t.f.Read(p) }

func (t *TempFile) Seek(offset int64, whence int) (int64, error) {
	return t.f.Seek(offset, whence)
}

// Release closes the handle and deletes the file. Removal is attempted even when closing fails and
// failures are only logged: a leaked temp file does not affect the request. Release is idempotent.
func (t *TempFile) Release(logs CleanupLogger) {
	if t == nil || t.released {
		return
	}

	t.released = true

	err := errors.CombineErrors(t.f.Close(), os.Remove(t.path))
	if err != nil && logs != nil {
		logs.LogSpillCleanupError(t.path, err)
	}
}

// SpillBuffer collects a body in memory until it grows past the limit, then moves what it has
// into a TempFile and continues writing there. Callers only see Write and Reader.
type SpillBuffer struct {
	limit int64
	dir   string
	logs  CleanupLogger

	mem  bytes.Buffer
	file *TempFile
	size int64
}

// NewSpillBuffer inits a buffer that spills to dir after limit bytes. A negative limit never spills.
func NewSpillBuffer(limit int64, dir string, logs CleanupLogger) *SpillBuffer {
	return &SpillBuffer{limit: limit, dir: dir, logs: logs}
}

// Size returns the number of bytes written so far.
func (s *SpillBuffer) Size() int64 { return s.size }

// Spilled reports whether the content lives on disk.
func (s *SpillBuffer) Spilled() bool { return s.file != nil }

func (s *SpillBuffer) Write(p []byte) (int, error) {
	if s.file == nil && s.limit >= 0 && int64(s.mem.Len()+len(p)) > s.limit {
		if err := s.spill(); err != nil {
			return 0, err
		}
	}

	if s.file != nil {
		n, err := s.file.Write(p)
		s.size += int64(n)

		if err != nil {
			return n, errors.Wrapf(err, "write spill file %q", s.file.Name())
		}

		return n, nil
	}

	n, _ := s.mem.Write(p)
	s.size += int64(n)

	return n, nil
}

func (s *SpillBuffer) spill() error {
	f, err := CreateTempFile(s.dir)
	if err != nil {
		return err
	}

	if _, err := f.Write(s.mem.Bytes()); err != nil {
		f.Release(s.logs)
		return errors.Wrapf(err, "move buffered body into %q", f.Name())
	}

	s.file = f
	s.mem = bytes.Buffer{}

	return nil
}

// Reader returns the collected content from the start. Closing the reader releases the spill file.
func (s *SpillBuffer) Reader() (io.ReadCloser, error) {
	if s.file == nil {
		return io.NopCloser(bytes.NewReader(s.mem.Bytes())), nil
	}

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "rewind spill file %q", s.file.Name())
	}

	return &spillReader{s}, nil
}

// Release deletes the spill file, if any, and drops the memory.
func (s *SpillBuffer) Release() {
	s.file.Release(s.logs)
	s.mem = bytes.Buffer{}
}

type spillReader struct{ s *SpillBuffer }

func (r *spillReader) Read(p []byte) (int, error) { return r.s.file.Read(p) }

func (r *spillReader) Close() error {
	r.s.Release()
	return nil
}
