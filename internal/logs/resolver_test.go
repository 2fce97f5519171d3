package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ignatij/kyubey/internal/logs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{ err error }

func (s failingSource) Read(ctx context.Context, rel string) ([]byte, error) {
	return nil, s.err
}

type recordingSource struct {
	paths   []string
	content string
}

func (s *recordingSource) Read(ctx context.Context, rel string) ([]byte, error) {
	s.paths = append(s.paths, rel)
	return []byte(s.content), nil
}

func writeLog(t *testing.T, base string, key logs.Key, content string) {
	t.Helper()
	full := filepath.Join(base, filepath.FromSlash(key.Path()))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestKeyPath(t *testing.T) {
	key := logs.Key{DagID: "d1", RunID: "manual__2024-01-01T00:00:00+00:00", TaskID: "t1", Attempt: 3}
	assert.Equal(t, "dag_id=d1/run_id=manual__2024-01-01T00:00:00+00:00/task_id=t1/attempt=3.log", key.Path())
}

func TestKeyValidate(t *testing.T) {
	valid := logs.Key{DagID: "d1", RunID: "r1", TaskID: "group.t1", Attempt: 1}
	assert.NoError(t, valid.Validate())

	invalid := map[string]logs.Key{
		"empty dag":   {DagID: "", RunID: "r1", TaskID: "t1", Attempt: 1},
		"dot run":     {DagID: "d1", RunID: ".", TaskID: "t1", Attempt: 1},
		"dotdot task": {DagID: "d1", RunID: "r1", TaskID: "..", Attempt: 1},
		"slash":       {DagID: "d1/../../etc", RunID: "r1", TaskID: "t1", Attempt: 1},
		"backslash":   {DagID: "d1", RunID: `r1\x`, TaskID: "t1", Attempt: 1},
		"nul":         {DagID: "d1", RunID: "r1", TaskID: "t\x00", Attempt: 1},
		"attempt 0":   {DagID: "d1", RunID: "r1", TaskID: "t1", Attempt: 0},
	}
	for name, key := range invalid {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, key.Validate(), logs.ErrNotFound)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		strip bool
		want  string
	}{
		{"crlf", "a\r\nb\r\n", false, "a\nb\n"},
		{"bare cr", "a\rb", false, "a\nb"},
		{"mixed", "a\r\n\rb\n", false, "a\n\nb\n"},
		{"ansi kept", "\x1b[1mbold\x1b[0m", false, "\x1b[1mbold\x1b[0m"},
		{"ansi stripped", "\x1b[1mbold\x1b[0m\r\n", true, "bold\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logs.Normalize(tt.in, tt.strip))
		})
	}
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{}, logs.Lines(""))
	assert.Equal(t, []string{"a", "b"}, logs.Lines("a\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, logs.Lines("a\n\nb"))
	assert.Equal(t, []string{""}, logs.Lines("\n"))
}

func TestFileSource(t *testing.T) {
	base := t.TempDir()
	key := logs.Key{DagID: "d1", RunID: "r1", TaskID: "t1", Attempt: 1}
	writeLog(t, base, key, "hello\r\nworld")
	source := logs.NewFileSource(base)

	t.Run("Reads", func(t *testing.T) {
		content, err := source.Read(context.Background(), key.Path())
		require.NoError(t, err)
		assert.Equal(t, "hello\r\nworld", string(content))
	})

	t.Run("MissingIsNotFound", func(t *testing.T) {
		_, err := source.Read(context.Background(), "dag_id=d1/run_id=r1/task_id=t1/attempt=2.log")
		assert.ErrorIs(t, err, logs.ErrNotFound)
	})

	t.Run("EscapingPathIsNotFound", func(t *testing.T) {
		_, err := source.Read(context.Background(), "../outside.log")
		assert.ErrorIs(t, err, logs.ErrNotFound)
	})

	t.Run("DirectoryIsInternalFailure", func(t *testing.T) {
		_, err := source.Read(context.Background(), "dag_id=d1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, logs.ErrNotFound)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := source.Read(ctx, key.Path())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestResolver(t *testing.T) {
	key := logs.Key{DagID: "d1", RunID: "r1", TaskID: "t1", Attempt: 2}

	t.Run("ReadsThroughSource", func(t *testing.T) {
		source := &recordingSource{content: "a\r\nb"}
		content, err := logs.NewResolver(source, false).Read(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, "a\nb", content)
		assert.Equal(t, []string{key.Path()}, source.paths)
	})

	t.Run("NoCaching", func(t *testing.T) {
		source := &recordingSource{content: "x"}
		resolver := logs.NewResolver(source, false)
		_, _ = resolver.Read(context.Background(), key)
		_, _ = resolver.Read(context.Background(), key)
		assert.Len(t, source.paths, 2)
	})

	t.Run("InvalidKeyNeverTouchesSource", func(t *testing.T) {
		source := &recordingSource{}
		_, err := logs.NewResolver(source, false).Read(context.Background(), logs.Key{DagID: "..", RunID: "r", TaskID: "t", Attempt: 1})
		assert.ErrorIs(t, err, logs.ErrNotFound)
		assert.Empty(t, source.paths)
	})

	t.Run("PropagatesFailures", func(t *testing.T) {
		boom := errors.New("disk on fire")
		_, err := logs.NewResolver(failingSource{err: boom}, false).Read(context.Background(), key)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, logs.ErrNotFound)
	})
}
