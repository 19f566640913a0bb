package audio

import (
	"bufio"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"Whispen/pkg/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sniffLen is how many leading bytes are inspected for the content type.
const sniffLen = 3072

// Manager owns the temp folder. It is safe for concurrent use: files get
// unique random names and Delete tolerates files that are already gone.
type Manager struct {
	root      string
	maxBytes  int64
	allowed   map[string]struct{}
	allowList []string
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates the temp folder if needed and returns a Manager rooted
// at its absolute path.
func NewManager(cfg Config, logger *zap.Logger, opts ...Option) (*Manager, error) {
	if cfg.Root == "" {
		return nil, errors.New("temp folder is required")
	}
	if cfg.MaxBytes <= 0 {
		return nil, errors.New("max file size must be positive")
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve temp folder %s", cfg.Root)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, errors.Wrapf(err, "create temp folder %s", root)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		root:      root,
		maxBytes:  cfg.MaxBytes,
		allowed:   make(map[string]struct{}, len(cfg.AllowedExtensions)),
		retention: cfg.Retention,
		logger:    logger.Named("audio"),
		now:       time.Now,
	}
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" {
			continue
		}
		if _, dup := m.allowed[ext]; !dup {
			m.allowList = append(m.allowList, ext)
		}
		m.allowed[ext] = struct{}{}
	}
	if m.retention <= 0 {
		m.retention = 24 * time.Hour
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Root returns the absolute temp folder.
func (m *Manager) Root() string { return m.root }

// MaxBytes returns the upload size limit.
func (m *Manager) MaxBytes() int64 { return m.maxBytes }

// AllowedExtensions returns the accepted extensions, lower case without dot.
func (m *Manager) AllowedExtensions() []string {
	out := make([]string, len(m.allowList))
	copy(out, m.allowList)
	return out
}

// Retention returns the default maximum age of a file.
func (m *Manager) Retention() time.Duration { return m.retention }

// Validate checks the declared size, then the extension of filename.
func (m *Manager) Validate(filename string, size int64) error {
	if size > m.maxBytes {
		return errors.WithKindf(errors.KindPayloadTooLarge,
			"file too large: %d bytes, maximum %d", size, m.maxBytes).
			WithContext("filename", filename)
	}

	ext := extension(filename)
	if _, ok := m.allowed[strings.TrimPrefix(ext, ".")]; !ok {
		return errors.WithKindf(errors.KindUnsupportedMediaType,
			"unsupported format %q, accepted: %s", ext, strings.Join(m.allowList, ", ")).
			WithContext("filename", filename)
	}
	return nil
}

// Save validates and writes r to a new file named <uuid><ext>. The stream is
// capped at the size limit whatever the declared size was; an oversized or
// failed write leaves no file behind.
func (m *Manager) Save(ctx context.Context, r io.Reader, filename string, size int64) (*Artifact, error) {
	if err := m.Validate(filename, size); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapKind(err, errors.KindStorage, "save aborted")
	}

	ext := extension(filename)
	id := uuid.New().String()
	path := filepath.Join(m.root, id+ext)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindStorage, "create file")
	}

	br := bufio.NewReaderSize(r, sniffLen)
	head, _ := br.Peek(sniffLen)
	mime := mimetype.Detect(head).String()
	if !isAudioMime(mime) {
		m.logger.Warn("unexpected content type",
			zap.String("filename", filename), zap.String("mime", mime))
	}

	written, err := io.Copy(f, io.LimitReader(br, m.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		m.remove(path)
		return nil, errors.WrapKind(err, errors.KindStorage, "write file")
	}
	if written > m.maxBytes {
		m.remove(path)
		return nil, errors.WithKindf(errors.KindPayloadTooLarge,
			"file too large: more than %d bytes", m.maxBytes).
			WithContext("filename", filename)
	}

	a := &Artifact{
		ID:           id,
		OriginalName: filename,
		Extension:    ext,
		Size:         written,
		Path:         path,
		MimeType:     mime,
		CreatedAt:    m.now().UTC(),
	}
	m.logger.Info("file saved",
		zap.String("id", id),
		zap.String("filename", filename),
		zap.Int64("size", written),
		zap.String("mime", mime))
	return a, nil
}

// Delete removes the file at path if it lives inside the temp folder. It
// reports whether a file was actually removed and never fails.
func (m *Manager) Delete(path string) bool {
	abs, ok := m.contained(path)
	if !ok {
		m.logger.Warn("delete rejected: outside temp folder", zap.String("path", path))
		return false
	}

	st, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Debug("delete: file already gone", zap.String("path", abs))
		} else {
			m.logger.Error("delete: stat failed", zap.String("path", abs), zap.Error(err))
		}
		return false
	}
	if st.IsDir() {
		m.logger.Warn("delete rejected: directory", zap.String("path", abs))
		return false
	}

	if err := os.Remove(abs); err != nil {
		if !os.IsNotExist(err) {
			m.logger.Error("delete failed", zap.String("path", abs), zap.Error(err))
		}
		return false
	}
	m.logger.Info("file deleted", zap.String("path", abs))
	return true
}

// Sweep deletes regular files directly inside the temp folder whose
// modification time is older than maxAgeHours. A non-positive value uses the
// configured retention. It returns the number of files deleted.
func (m *Manager) Sweep(maxAgeHours int) int {
	maxAge := m.retention
	if maxAgeHours > 0 {
		maxAge = time.Duration(maxAgeHours) * time.Hour
	}
	cutoff := m.now().Add(-maxAge)

	entries, err := os.ReadDir(m.root)
	if err != nil {
		m.logger.Error("sweep: read temp folder", zap.String("root", m.root), zap.Error(err))
		return 0
	}

	deleted := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			m.logger.Warn("sweep: stat", zap.String("name", e.Name()), zap.Error(err))
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if m.Delete(filepath.Join(m.root, e.Name())) {
			deleted++
		}
	}

	if deleted > 0 {
		m.logger.Info("sweep done", zap.Int("deleted", deleted), zap.Duration("max_age", maxAge))
	}
	return deleted
}

// Info describes the file at path. ok is false when it does not exist or
// cannot be read.
func (m *Manager) Info(path string) (FileInfo, bool) {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return FileInfo{}, false
	}
	return FileInfo{
		Filename:   st.Name(),
		SizeBytes:  st.Size(),
		SizeMB:     math.Round(float64(st.Size())/(1024*1024)*100) / 100,
		ModifiedAt: st.ModTime(),
	}, true
}

func (m *Manager) contained(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return abs, true
}

func (m *Manager) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.logger.Error("cleanup of partial file failed", zap.String("path", path), zap.Error(err))
	}
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func isAudioMime(mime string) bool {
	for _, t := range audioMimeTypes {
		if strings.Contains(mime, t) {
			return true
		}
	}
	return false
}
