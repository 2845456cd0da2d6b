package reminder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/muellbot/muellbot/internal/logger"
)

// JobsFilename is the filename for the reminder store inside the workspace.
const JobsFilename = "reminders.jsonl"

// Store provides durable persistence for pending reminder jobs. Records are
// stored in JSONL format, one job per line, and every mutation rewrites the
// file atomically (write to a temporary file, fsync, rename) so a crash never
// corrupts previously committed records.
type Store struct {
	filePath string
	log      *logger.Logger

	mu      sync.Mutex
	records map[JobKey]JobRecord
	order   []JobKey
	closed  bool
}

// OpenStore opens the reminder store under the given workspace directory and
// loads all stored records into memory. A store file that exists but cannot
// be read or parsed is an error; callers are expected to treat it as fatal
// rather than operate with silently lost state.
func OpenStore(workspacePath string, log *logger.Logger) (*Store, error) {
	filePath := filepath.Join(workspacePath, JobsFilename)

	s := &Store{
		filePath: filePath,
		log:      log,
		records:  make(map[JobKey]JobRecord),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	log.Info("reminder store opened",
		logger.Field{Key: "file", Value: filePath},
		logger.Field{Key: "records", Value: len(s.records)})

	return s, nil
}

// load reads the JSONL store file into memory, preserving line order.
func (s *Store) load() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	file, err := os.Open(s.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open store file %s: %w", s.filePath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var rec JobRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return fmt.Errorf("corrupt store file %s line %d: %w", s.filePath, lineNum, err)
		}

		key := rec.Key()
		if _, exists := s.records[key]; !exists {
			s.order = append(s.order, key)
		}
		s.records[key] = rec
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read store file %s: %w", s.filePath, err)
	}

	return nil
}

// Put inserts or replaces the record for its key. The write is durable before
// Put returns.
func (s *Store) Put(rec JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	key := rec.Key()
	prev, existed := s.records[key]
	if !existed {
		s.order = append(s.order, key)
	}
	s.records[key] = rec

	if err := s.save(); err != nil {
		// Roll back so memory never holds a record the file does not.
		if existed {
			s.records[key] = prev
		} else {
			delete(s.records, key)
			s.order = s.order[:len(s.order)-1]
		}
		return err
	}

	s.log.Debug("record persisted",
		logger.Field{Key: "key", Value: key.String()},
		logger.Field{Key: "fire_at", Value: rec.FireAt})

	return nil
}

// Delete removes the record for the key if present. The returned bool reports
// whether a removal occurred; false is not an error.
func (s *Store) Delete(key JobKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, fmt.Errorf("store is closed")
	}

	rec, ok := s.records[key]
	if !ok {
		return false, nil
	}

	orderBefore := slices.Clone(s.order)
	delete(s.records, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	if err := s.save(); err != nil {
		s.records[key] = rec
		s.order = orderBefore
		return false, err
	}

	s.log.Debug("record removed", logger.Field{Key: "key", Value: key.String()})

	return true, nil
}

// Get returns the record for the key, if present.
func (s *Store) Get(key JobKey) (JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	return rec, ok
}

// GetAll returns every stored record in insertion order. The order carries no
// semantic guarantee; callers needing display order must sort.
func (s *Store) GetAll() []JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]JobRecord, 0, len(s.order))
	for _, key := range s.order {
		records = append(records, s.records[key])
	}
	return records
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Compact removes any record that is not pending and rewrites the file.
// The store only ever holds pending records in normal operation; compaction
// cleans up leftovers from interrupted shutdowns or hand-edited files.
func (s *Store) Compact() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	orderBefore := slices.Clone(s.order)
	dropped := make(map[JobKey]JobRecord)
	kept := s.order[:0]
	for _, key := range orderBefore {
		if rec := s.records[key]; rec.State != StatePending {
			dropped[key] = rec
			delete(s.records, key)
			continue
		}
		kept = append(kept, key)
	}
	s.order = kept

	if len(dropped) == 0 {
		return 0, nil
	}

	if err := s.save(); err != nil {
		for key, rec := range dropped {
			s.records[key] = rec
		}
		s.order = orderBefore
		return 0, err
	}
	removed := len(dropped)

	s.log.Info("store compacted", logger.Field{Key: "removed", Value: removed})

	return removed, nil
}

// Close marks the store closed. Further mutations fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// save writes all records to the store file atomically. The caller must hold
// s.mu.
func (s *Store) save() error {
	tmpPath := s.filePath + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}

	for _, key := range s.order {
		data, err := json.Marshal(s.records[key])
		if err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to marshal record %s: %w", key, err)
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to write temporary store file: %w", err)
		}
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary store file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary store file: %w", err)
	}

	return nil
}
