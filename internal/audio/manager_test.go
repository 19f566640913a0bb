package audio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Whispen/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testMax = 1024

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Root:              t.TempDir(),
		MaxBytes:          testMax,
		AllowedExtensions: []string{"mp3", "wav", "m4a", "flac", "ogg", "webm"},
		Retention:         24 * time.Hour,
	}, nil, opts...)
	require.NoError(t, err)
	return m
}

func listRoot(t *testing.T, m *Manager) []string {
	t.Helper()
	entries, err := os.ReadDir(m.Root())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// wavHeader is enough for content sniffing to report audio/wav.
func wavHeader() []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	b.Write([]byte{0x24, 0, 0, 0})
	b.WriteString("WAVEfmt ")
	b.Write(make([]byte, 24))
	return b.Bytes()
}

func TestNewManagerCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "temp")
	m, err := NewManager(Config{Root: root, MaxBytes: 10, AllowedExtensions: []string{".MP3", " wav "}}, nil)
	require.NoError(t, err)

	st, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
	assert.True(t, filepath.IsAbs(m.Root()))
	assert.Equal(t, []string{"mp3", "wav"}, m.AllowedExtensions())
	assert.Equal(t, 24*time.Hour, m.Retention())
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	_, err := NewManager(Config{MaxBytes: 10}, nil)
	assert.Error(t, err)

	_, err = NewManager(Config{Root: t.TempDir()}, nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	m := newTestManager(t)

	assert.NoError(t, m.Validate("meeting.mp3", 10))
	assert.NoError(t, m.Validate("MEETING.WAV", testMax))

	err := m.Validate("meeting.mp3", testMax+1)
	assert.True(t, errors.IsKind(err, errors.KindPayloadTooLarge))

	// size is checked before the extension
	err = m.Validate("notes.txt", testMax+1)
	assert.True(t, errors.IsKind(err, errors.KindPayloadTooLarge))

	err = m.Validate("notes.txt", 10)
	assert.True(t, errors.IsKind(err, errors.KindUnsupportedMediaType))
	assert.Contains(t, err.Error(), "mp3, wav")

	err = m.Validate("noextension", 10)
	assert.True(t, errors.IsKind(err, errors.KindUnsupportedMediaType))
}

func TestSave(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := newTestManager(t, WithClock(func() time.Time { return now }))

	content := append(wavHeader(), bytes.Repeat([]byte{1}, 100)...)
	a, err := m.Save(context.Background(), bytes.NewReader(content), "Réunion.WAV", int64(len(content)))
	require.NoError(t, err)

	assert.Len(t, a.ID, 36)
	assert.Equal(t, ".wav", a.Extension)
	assert.Equal(t, "Réunion.WAV", a.OriginalName)
	assert.Equal(t, int64(len(content)), a.Size)
	assert.Equal(t, filepath.Join(m.Root(), a.ID+".wav"), a.Path)
	assert.Equal(t, now, a.CreatedAt)
	assert.Contains(t, a.MimeType, "wav")

	got, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSaveUniqueNames(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Save(context.Background(), strings.NewReader("one"), "a.mp3", 3)
	require.NoError(t, err)
	b, err := m.Save(context.Background(), strings.NewReader("two"), "a.mp3", 3)
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
	assert.Len(t, listRoot(t, m), 2)
}

func TestSaveValidationCreatesNoFile(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Save(context.Background(), strings.NewReader("x"), "a.exe", 1)
	assert.True(t, errors.IsKind(err, errors.KindUnsupportedMediaType))

	_, err = m.Save(context.Background(), strings.NewReader("x"), "a.mp3", testMax+1)
	assert.True(t, errors.IsKind(err, errors.KindPayloadTooLarge))

	assert.Empty(t, listRoot(t, m))
}

func TestSaveUnderstatedSize(t *testing.T) {
	m := newTestManager(t)

	body := bytes.Repeat([]byte{'a'}, testMax+10)
	_, err := m.Save(context.Background(), bytes.NewReader(body), "a.mp3", 5)
	assert.True(t, errors.IsKind(err, errors.KindPayloadTooLarge))
	assert.Empty(t, listRoot(t, m))
}

func TestSaveExactLimit(t *testing.T) {
	m := newTestManager(t)

	body := bytes.Repeat([]byte{'a'}, testMax)
	a, err := m.Save(context.Background(), bytes.NewReader(body), "a.mp3", testMax)
	require.NoError(t, err)
	assert.Equal(t, int64(testMax), a.Size)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, os.ErrClosed }

func TestSaveReadFailure(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Save(context.Background(), failingReader{}, "a.mp3", 10)
	assert.True(t, errors.IsKind(err, errors.KindStorage))
	assert.Empty(t, listRoot(t, m))
}

func TestSaveWarnsOnNonAudioContent(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m, err := NewManager(Config{Root: t.TempDir(), MaxBytes: testMax, AllowedExtensions: []string{"mp3"}}, zap.New(core))
	require.NoError(t, err)

	a, err := m.Save(context.Background(), strings.NewReader("just some text"), "a.mp3", 14)
	require.NoError(t, err)
	assert.FileExists(t, a.Path)
	assert.Equal(t, 1, logs.FilterMessage("unexpected content type").Len())
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Save(context.Background(), strings.NewReader("abc"), "a.mp3", 3)
	require.NoError(t, err)

	assert.True(t, m.Delete(a.Path))
	assert.NoFileExists(t, a.Path)

	// idempotent
	assert.False(t, m.Delete(a.Path))
}

func TestDeleteOutsideRoot(t *testing.T) {
	m := newTestManager(t)

	outside := filepath.Join(t.TempDir(), "keep.mp3")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	assert.False(t, m.Delete(outside))
	assert.FileExists(t, outside)

	assert.False(t, m.Delete(filepath.Join(m.Root(), "..", filepath.Base(filepath.Dir(outside)), "keep.mp3")))
	assert.False(t, m.Delete(m.Root()))
	assert.False(t, m.Delete(""))
	assert.DirExists(t, m.Root())
}

func TestDeleteRejectsDirectory(t *testing.T) {
	m := newTestManager(t)

	dir := filepath.Join(m.Root(), "sub")
	require.NoError(t, os.Mkdir(dir, 0o750))

	assert.False(t, m.Delete(dir))
	assert.DirExists(t, dir)
}

func TestSweep(t *testing.T) {
	now := time.Now()
	m := newTestManager(t, WithClock(func() time.Time { return now }))

	old := filepath.Join(m.Root(), "old.mp3")
	fresh := filepath.Join(m.Root(), "fresh.mp3")
	require.NoError(t, os.WriteFile(old, []byte("o"), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte("f"), 0o600))
	require.NoError(t, os.Chtimes(old, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))

	sub := filepath.Join(m.Root(), "dir")
	require.NoError(t, os.Mkdir(sub, 0o750))
	require.NoError(t, os.Chtimes(sub, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))

	assert.Equal(t, 1, m.Sweep(24))
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.DirExists(t, sub)

	assert.Equal(t, 0, m.Sweep(24))
}

func TestSweepDefaultRetention(t *testing.T) {
	now := time.Now()
	m := newTestManager(t, WithClock(func() time.Time { return now }))

	f := filepath.Join(m.Root(), "a.wav")
	require.NoError(t, os.WriteFile(f, []byte("a"), 0o600))
	require.NoError(t, os.Chtimes(f, now.Add(-25*time.Hour), now.Add(-25*time.Hour)))

	assert.Equal(t, 1, m.Sweep(0))
}

func TestSweepShorterWindow(t *testing.T) {
	now := time.Now()
	m := newTestManager(t, WithClock(func() time.Time { return now }))

	f := filepath.Join(m.Root(), "a.wav")
	require.NoError(t, os.WriteFile(f, []byte("a"), 0o600))
	require.NoError(t, os.Chtimes(f, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))

	assert.Equal(t, 0, m.Sweep(3))
	assert.Equal(t, 1, m.Sweep(1))
}

func TestInfo(t *testing.T) {
	m := newTestManager(t)

	f := filepath.Join(m.Root(), "a.wav")
	require.NoError(t, os.WriteFile(f, bytes.Repeat([]byte{0}, 1572864), 0o600))

	info, ok := m.Info(f)
	require.True(t, ok)
	assert.Equal(t, "a.wav", info.Filename)
	assert.Equal(t, int64(1572864), info.SizeBytes)
	assert.Equal(t, 1.5, info.SizeMB)
	assert.False(t, info.ModifiedAt.IsZero())

	_, ok = m.Info(filepath.Join(m.Root(), "missing.wav"))
	assert.False(t, ok)
}
