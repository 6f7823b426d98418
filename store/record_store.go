package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is one element of a collection: a JSON object with at least an
// integer "id" and an RFC3339 "createdAt" once persisted.
type Record map[string]any

// Predicate filters records during Find/Update/Delete/Count.
type Predicate func(Record) bool

// RecordStore persists named collections of records, one JSON array file
// per collection under the data directory. Every mutation is a whole
// collection read-modify-write performed under a per-collection lock, so
// individual operations (and Mutate round-trips) are linearizable.
type RecordStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRecordStore(dir string) (*RecordStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %q: %w", dir, err)
	}
	return &RecordStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *RecordStore) lockFor(collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		s.locks[collection] = l
	}
	return l
}

func (s *RecordStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// load reads the full collection from disk. A collection that has never
// been written reads as empty. Caller must hold the collection lock.
func (s *RecordStore) load(collection string) ([]Record, error) {
	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read collection %q: %w", collection, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode collection %q: %w", collection, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// persist replaces the collection file atomically (temp file + rename).
// Caller must hold the collection lock.
func (s *RecordStore) persist(collection string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection %q: %w", collection, err)
	}

	tmp, err := os.CreateTemp(s.dir, collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for collection %q: %w", collection, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write collection %q: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for collection %q: %w", collection, err)
	}

	if err := os.Rename(tmpName, s.path(collection)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace collection %q: %w", collection, err)
	}
	return nil
}

// Read returns the full collection, or an empty list if it has never been
// written.
func (s *RecordStore) Read(collection string) ([]Record, error) {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()
	return s.load(collection)
}

// Write replaces the entire collection's persisted contents.
func (s *RecordStore) Write(collection string, records []Record) error {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()
	if records == nil {
		records = []Record{}
	}
	return s.persist(collection, records)
}

// Insert assigns the next integer id (max existing + 1, or 1 for an empty
// collection), stamps createdAt if the record does not carry one, appends
// and persists. The stored record is returned.
func (s *RecordStore) Insert(collection string, record Record) (Record, error) {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(collection)
	if err != nil {
		return nil, err
	}

	stored := make(Record, len(record)+2)
	for k, v := range record {
		stored[k] = v
	}
	stored["id"] = NextID(records)
	if !hasTimestamp(stored, "createdAt") {
		stored["createdAt"] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	records = append(records, stored)
	if err := s.persist(collection, records); err != nil {
		return nil, err
	}
	return stored, nil
}

// Find loads the full collection and filters in memory. A nil predicate
// matches everything.
func (s *RecordStore) Find(collection string, pred Predicate) ([]Record, error) {
	records, err := s.Read(collection)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return records, nil
	}

	matched := []Record{}
	for _, r := range records {
		if pred(r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// FindOne returns the first match, or nil if nothing matches.
func (s *RecordStore) FindOne(collection string, pred Predicate) (Record, error) {
	records, err := s.Find(collection, pred)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Update merges patch into every matching record, stamps updatedAt on
// each, and persists. The number of updated records is returned. The "id"
// and "createdAt" fields cannot be patched.
func (s *RecordStore) Update(collection string, pred Predicate, patch Record) (int, error) {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(collection)
	if err != nil {
		return 0, err
	}

	updated := 0
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range records {
		if pred != nil && !pred(r) {
			continue
		}
		for k, v := range patch {
			if k == "id" || k == "createdAt" {
				continue
			}
			r[k] = v
		}
		r["updatedAt"] = now
		updated++
	}

	if updated == 0 {
		return 0, nil
	}
	if err := s.persist(collection, records); err != nil {
		return 0, err
	}
	return updated, nil
}

// Delete removes all matching records and persists the remainder.
func (s *RecordStore) Delete(collection string, pred Predicate) (int, error) {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(collection)
	if err != nil {
		return 0, err
	}

	remaining := records[:0]
	removed := 0
	for _, r := range records {
		if pred != nil && !pred(r) {
			remaining = append(remaining, r)
			continue
		}
		removed++
	}

	if removed == 0 {
		return 0, nil
	}
	if err := s.persist(collection, remaining); err != nil {
		return 0, err
	}
	return removed, nil
}

// Count returns the number of matching records, or the full collection
// length for a nil predicate.
func (s *RecordStore) Count(collection string, pred Predicate) (int, error) {
	records, err := s.Find(collection, pred)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Mutate runs fn on the loaded collection and persists its result, all
// under the collection lock. Callers use it for read-modify-write cycles
// that must not interleave, e.g. session counter increments. Returning
// the input slice unchanged still persists it.
func (s *RecordStore) Mutate(collection string, fn func(records []Record) ([]Record, error)) error {
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(collection)
	if err != nil {
		return err
	}

	records, err = fn(records)
	if err != nil {
		return err
	}
	if records == nil {
		records = []Record{}
	}
	return s.persist(collection, records)
}

// NextID computes max(existing ids) + 1, or 1 for an empty collection.
// Ids may be non-contiguous.
func NextID(records []Record) int {
	max := 0
	for _, r := range records {
		if id := RecordID(r); id > max {
			max = id
		}
	}
	return max + 1
}

// RecordID reads the integer id of a record, tolerating the float64 that
// encoding/json produces for numbers.
func RecordID(r Record) int {
	switch v := r["id"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// RecordTime parses a timestamp field, returning the zero time when the
// field is missing or malformed.
func RecordTime(r Record, key string) time.Time {
	v, ok := r[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func hasTimestamp(r Record, key string) bool {
	return !RecordTime(r, key).IsZero()
}

// ToRecord converts a struct to its record representation via JSON.
func ToRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return r, nil
}

// FromRecord decodes a record into a typed struct.
func FromRecord(r Record, dst any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

// FromRecords decodes a slice of records into a slice of typed structs.
func FromRecords(records []Record, dst any) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode records: %w", err)
	}
	return nil
}
