// Package events reads and appends per-shop behavioral event logs.
// Each shop owns one append-only JSONL file; the file's modification time
// doubles as the staleness signal for cached segment computations.
package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ignite/campaign-engine/internal/domain"
)

// Reader supplies a shop's event stream and its freshness signal.
type Reader interface {
	// ListEvents returns every event in the shop's log, oldest first.
	ListEvents(ctx context.Context, shop string) ([]domain.Event, error)
	// ModTime returns the log's last modification time. A zero time with
	// nil error means the shop has no log yet.
	ModTime(shop string) (time.Time, error)
}

// Appender records new events, e.g. unsubscribe requests from the
// tracking endpoints.
type Appender interface {
	Append(ctx context.Context, shop string, e domain.Event) error
}

// FileLog is the JSONL-file implementation of Reader and Appender,
// rooted at <dir>/<shop>/events.jsonl.
type FileLog struct {
	dir string
}

// NewFileLog creates a file-backed event log under dir.
func NewFileLog(dir string) *FileLog {
	return &FileLog{dir: dir}
}

func (l *FileLog) path(shop string) string {
	return filepath.Join(l.dir, shop, "events.jsonl")
}

// ListEvents reads the whole log. Individual malformed lines are skipped
// so one corrupt write cannot poison segment resolution forever.
func (l *FileLog) ListEvents(ctx context.Context, shop string) ([]domain.Event, error) {
	f, err := os.Open(l.path(shop))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open event log for %s: %w", shop, err)
	}
	defer f.Close()

	var out []domain.Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e domain.Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan event log for %s: %w", shop, err)
	}
	return out, nil
}

// ModTime returns the log file's mtime, or the zero time when absent.
func (l *FileLog) ModTime(shop string) (time.Time, error) {
	info, err := os.Stat(l.path(shop))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("stat event log for %s: %w", shop, err)
	}
	return info.ModTime(), nil
}

// Append writes one event as a JSON line, creating the shop directory and
// log on first use.
func (l *FileLog) Append(ctx context.Context, shop string, e domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(l.dir, shop), 0o755); err != nil {
		return fmt.Errorf("create shop dir for %s: %w", shop, err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	f, err := os.OpenFile(l.path(shop), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log for %s: %w", shop, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append event for %s: %w", shop, err)
	}
	return nil
}
