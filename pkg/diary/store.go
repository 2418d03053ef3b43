package diary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unowned-ai/foodtracker/pkg/kv"
)

const (
	// KeyPrefix starts every persisted day key, e.g. diary_2024-03-09.
	KeyPrefix = "diary_"
	// DayLayout is the calendar-day format used in keys.
	DayLayout = "2006-01-02"
)

var ErrInvalidEntry = errors.New("invalid food entry")

// StorageError reports a failed read or write against local persistence.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("diary storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("diary storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DayKey is the calendar date of day in its own location. Time of day is ignored.
func DayKey(day time.Time) string {
	return day.Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD day in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, expected YYYY-MM-DD: %w", s, err)
	}
	return day, nil
}

func storageKey(day time.Time) string {
	return KeyPrefix + DayKey(day)
}

// Store persists one record per calendar day into a kv.Store.
// mu serializes writers so a read-modify-write of a day cannot interleave.
type Store struct {
	kv       kv.Store
	log      *zap.SugaredLogger
	validate *validator.Validate
	mu       sync.Mutex
}

func NewStore(store kv.Store, log *zap.SugaredLogger) *Store {
	return &Store{
		kv:       store,
		log:      log,
		validate: validator.New(),
	}
}

// GetEntries returns the day's entries in stored order. Missing days and read
// failures both yield an empty slice; failures are logged.
func (s *Store) GetEntries(ctx context.Context, day time.Time) []FoodEntry {
	entries, err := s.load(ctx, storageKey(day))
	if err != nil {
		s.log.Errorw("error loading diary entries", "day", DayKey(day), "error", err)
		return []FoodEntry{}
	}
	return entries
}

// GetDiary wraps GetEntries with the day key.
func (s *Store) GetDiary(ctx context.Context, day time.Time) DailyDiary {
	return DailyDiary{Date: DayKey(day), Entries: s.GetEntries(ctx, day)}
}

// SaveEntries overwrites the whole day with entries. It does not merge.
func (s *Store) SaveEntries(ctx context.Context, day time.Time, entries []FoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, storageKey(day), entries, nil)
}

// Update reads the day, applies fn and saves the result while holding the
// store lock. Unlike GetEntries, an unreadable day is an error here so a
// corrupt record is never silently replaced. Entries written back exactly as
// they were read skip validation, so records this build cannot display survive.
func (s *Store) Update(ctx context.Context, day time.Time, fn func([]FoodEntry) ([]FoodEntry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storageKey(day)
	entries, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	updated, err := fn(entries)
	if err != nil {
		return err
	}
	return s.save(ctx, key, updated, entries)
}

// DeleteAllEntries removes every persisted day and reports how many were removed.
func (s *Store) DeleteAllEntries(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.kv.Keys(ctx, KeyPrefix)
	if err != nil {
		return 0, &StorageError{Op: "list", Err: err}
	}
	n, err := s.kv.Remove(ctx, keys...)
	if err != nil {
		return 0, &StorageError{Op: "remove", Err: err}
	}
	s.log.Infow("deleted all diary days", "days", n)
	return n, nil
}

// ListDays returns the persisted days as YYYY-MM-DD strings, oldest first.
func (s *Store) ListDays(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	days := make([]string, 0, len(keys))
	for _, k := range keys {
		days = append(days, strings.TrimPrefix(k, KeyPrefix))
	}
	return days, nil
}

func (s *Store) load(ctx context.Context, key string) ([]FoodEntry, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return []FoodEntry{}, nil
		}
		return nil, &StorageError{Op: "read", Key: key, Err: err}
	}

	var entries []FoodEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, &StorageError{Op: "decode", Key: key, Err: err}
	}
	if entries == nil {
		entries = []FoodEntry{}
	}
	return entries, nil
}

// save validates every entry not found verbatim in stored, then overwrites key.
func (s *Store) save(ctx context.Context, key string, entries, stored []FoodEntry) error {
	if entries == nil {
		entries = []FoodEntry{}
	}
	unchanged := make(map[FoodEntry]struct{}, len(stored))
	for _, e := range stored {
		unchanged[e] = struct{}{}
	}
	for i := range entries {
		if _, ok := unchanged[entries[i]]; ok {
			continue
		}
		if err := s.validate.Struct(entries[i]); err != nil {
			return fmt.Errorf("%w at position %d: %v", ErrInvalidEntry, i, err)
		}
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return &StorageError{Op: "write", Key: key, Err: err}
	}
	return nil
}
