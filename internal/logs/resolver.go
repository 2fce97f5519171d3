package logs

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/ignatij/kyubey/internal/metrics"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when no log exists for a key, or when the key
// cannot address a log at all.
var ErrNotFound = errors.New("log not found")

// Key addresses the log of one task attempt.
type Key struct {
	DagID   string
	RunID   string
	TaskID  string
	Attempt uint32
}

// Path returns the slash-separated location of the log relative to the log root:
// dag_id={dag}/run_id={run}/task_id={task}/attempt={n}.log
func (k Key) Path() string {
	return path.Join(
		"dag_id="+k.DagID,
		"run_id="+k.RunID,
		"task_id="+k.TaskID,
		fmt.Sprintf("attempt=%d.log", k.Attempt),
	)
}

// Validate rejects keys whose identifiers would escape their path segment.
func (k Key) Validate() error {
	for _, id := range []string{k.DagID, k.RunID, k.TaskID} {
		if !safeSegment(id) {
			return errors.Wrapf(ErrNotFound, "invalid log identifier %q", id)
		}
	}
	if k.Attempt == 0 {
		return errors.Wrap(ErrNotFound, "attempt must be at least 1")
	}
	return nil
}

func safeSegment(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00")
}

// Source reads raw log bytes by their relative path.
type Source interface {
	Read(ctx context.Context, rel string) ([]byte, error)
}

// Resolver reads task attempt logs from a Source and prepares them for display.
type Resolver struct {
	source    Source
	stripANSI bool
}

func NewResolver(source Source, stripANSI bool) *Resolver {
	return &Resolver{source: source, stripANSI: stripANSI}
}

// Read returns the normalized content of the log addressed by key.
// No caching: every call reads the source again.
func (r *Resolver) Read(ctx context.Context, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		metrics.LogReads.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return "", err
	}
	raw, err := r.source.Read(ctx, key.Path())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.LogReads.WithLabelValues(metrics.OutcomeNotFound).Inc()
		} else {
			metrics.LogReads.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return "", err
	}
	metrics.LogReads.WithLabelValues(metrics.OutcomeOK).Inc()
	return Normalize(string(raw), r.stripANSI), nil
}

// Normalize converts "\r\n" and bare "\r" line endings to "\n" and optionally
// removes ANSI escape sequences.
func Normalize(content string, stripANSI bool) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	if stripANSI {
		content = stripansi.Strip(content)
	}
	return content
}

// Lines splits normalized content for line-numbered display. A trailing
// newline does not produce an extra empty line.
func Lines(content string) []string {
	if content == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}
