package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"cronpilot/pkg/logx"
)

// Load reads the store file into memory. A missing file is a first run and
// yields an empty store.
func (s *Store) Load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("store file missing, starting empty", logx.String("path", s.path))
		return nil
	}
	if err != nil {
		return err
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}

	s.mu.Lock()
	s.tasks = doc.Tasks
	s.history = doc.History
	if len(s.history) > HistoryLimit {
		s.history = s.history[:HistoryLimit]
	}
	s.mu.Unlock()

	s.log.Info("store loaded",
		logx.String("path", s.path),
		logx.Int("tasks", len(doc.Tasks)),
		logx.Int("history", len(doc.History)))
	return nil
}

// Persist enqueues a write of the current state. Writes are serialized by a
// single writer goroutine so concurrent mutations never interleave on disk;
// a queued signal coalesces with any signal already pending because the
// writer snapshots the latest state when it runs.
func (s *Store) Persist() {
	// pmu stays held across the send so Close cannot close the channel
	// between the closed check and the enqueue. The send never blocks.
	s.pmu.Lock()
	defer s.pmu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.pending <- struct{}{}:
	default:
		// A write is already queued; it will pick up this mutation.
	}
}

// RunWriter drains the persist queue until Close() is called. Intended to
// run as a single supervised goroutine.
func (s *Store) RunWriter() {
	for range s.pending {
		if err := s.writeSnapshot(); err != nil {
			// Best-effort mirror: memory stays authoritative.
			s.log.Error("store write failed", logx.String("path", s.path), logx.Err(err))
		}
	}
	close(s.done)
}

// Close stops the writer after flushing one final snapshot.
func (s *Store) Close() {
	s.pmu.Lock()
	if s.closed {
		s.pmu.Unlock()
		return
	}
	s.closed = true
	s.pmu.Unlock()

	close(s.pending)
	<-s.done

	if err := s.writeSnapshot(); err != nil {
		s.log.Error("final store write failed", logx.String("path", s.path), logx.Err(err))
	}
}

func (s *Store) writeSnapshot() error {
	s.mu.RLock()
	doc := document{
		Version: documentVersion,
		Tasks:   append([]Task(nil), s.tasks...),
		History: append([]ExecutionRecord(nil), s.history...),
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Write-then-rename so readers never observe a torn file.
	tmp, err := os.CreateTemp(dir, ".cronpilot-store-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
