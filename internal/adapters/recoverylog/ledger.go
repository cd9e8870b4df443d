package recoverylog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	recoveryPort "flowforge/internal/ports/recovery"
)

// FileLedger is an append-only JSONL journal of externally committed side
// effects. One file per day, opened O_APPEND|O_CREATE, fsynced on every
// append so an accepted paid submission survives a crash of this process.
// Entries are never rewritten; recovery tooling reads them back.
type FileLedger struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func NewFileLedger(dir string) *FileLedger {
	return &FileLedger{dir: dir, now: time.Now}
}

func (l *FileLedger) filePath(t time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("video_recovery_%s.jsonl", t.UTC().Format("20060102")))
}

func (l *FileLedger) Append(_ context.Context, entry recoveryPort.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.filePath(entry.Timestamp), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(raw, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// Entries returns every journaled entry across all ledger files, oldest
// file first. Used only by the recovery procedure.
func (l *FileLedger) Entries(_ context.Context) ([]recoveryPort.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(l.dir, "video_recovery_*.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var entries []recoveryPort.Entry
	for _, path := range matches {
		fileEntries, err := readEntries(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		entries = append(entries, fileEntries...)
	}
	return entries, nil
}

func readEntries(path string) ([]recoveryPort.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []recoveryPort.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry recoveryPort.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}
