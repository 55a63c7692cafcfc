package state

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/models"
)

// JSONStore keeps the journal as a JSON-lines file.
type JSONStore struct {
	path   string
	logger *events.Logger

	mu     sync.Mutex
	file   *os.File
	nextID int64
}

// NewJSONStore opens or creates the journal file at path.
func NewJSONStore(path string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	s := &JSONStore{
		path:   path,
		logger: logger.WithField("component", "json_journal"),
	}

	records, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID > s.nextID {
			s.nextID = rec.ID
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	s.file = file

	return s, nil
}

// Append writes rec as one line.
func (s *JSONStore) Append(rec *models.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrStoreClosed
	}

	s.nextID++
	rec.ID = s.nextID
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"id": rec.ID,
		"op": string(rec.Op),
	}).Debug("Appended journal record")

	return nil
}

// Recent reads the file and returns the newest records.
func (s *JSONStore) Recent(limit int) ([]models.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil, ErrStoreClosed
	}

	records, err := s.readAll()
	if err != nil {
		return nil, err
	}

	// Newest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Close closes the journal file.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *JSONStore) readAll() ([]models.TransferRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var records []models.TransferRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec models.TransferRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.logger.WithField("line", line).WithError(err).Warn("Corrupt journal line")
			return nil, fmt.Errorf("%w: line %d", ErrStoreCorrupt, line)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}

	return records, nil
}
