// Package audit keeps an append-only record of privileged actions.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Baaaki/yamdb/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry is one line of the journal.
type Entry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder is what services depend on.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Journal appends entries as JSON lines and syncs every write.
type Journal struct {
	filePath string
	file     *os.File
	mu       sync.Mutex
	rename   func(oldpath, newpath string) error
}

func Open(filePath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	return &Journal{filePath: filePath, file: file, rename: os.Rename}, nil
}

// Record fills in ID and Timestamp when they are empty.
func (j *Journal) Record(_ context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.file.Write(append(data, '\n')); err != nil {
		logger.Log.Error("Audit: write failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		return err
	}
	if err := j.file.Sync(); err != nil {
		logger.Log.Error("Audit: sync failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Debug("Audit: entry recorded",
		zap.String("id", entry.ID),
		zap.String("actor", entry.Actor),
		zap.String("action", entry.Action),
		zap.String("target", entry.Target),
	)
	return nil
}

func (j *Journal) ReadAll() ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.readAllLocked()
}

// Prune drops entries recorded before cutoff and returns how many were removed.
func (j *Journal) Prune(cutoff time.Time) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAllLocked()
	if err != nil {
		return 0, err
	}

	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	tmp := j.filePath + ".tmp"
	if err := writeEntries(tmp, kept); err != nil {
		return 0, err
	}

	// the current handle stays open until the rewritten file is ready
	if err := j.rename(tmp, j.filePath); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	file, err := os.OpenFile(j.filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}
	previous := j.file
	j.file = file
	if err := previous.Close(); err != nil {
		logger.Log.Warn("Audit: closing replaced journal failed", zap.Error(err))
	}

	logger.Log.Info("Audit: journal pruned",
		zap.Int("removed", removed),
		zap.Int("remaining", len(kept)),
	)
	return removed, nil
}

func writeEntries(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

func (j *Journal) readAllLocked() ([]Entry, error) {
	file, err := os.Open(j.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
