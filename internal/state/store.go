package state

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"lessonplay/internal/telemetry"
)

type Options struct {
	// Namespace prefixes every record key, normally the course id.
	Namespace string
	Logger    telemetry.Logger
	Now       func() time.Time
}

type bookmarkLog struct {
	NextID int64      `json:"next_id"`
	Items  []Bookmark `json:"items"`
}

// Store keeps every record in memory and mirrors mutations to a KV through
// a background writer. Memory is authoritative; persistence failures are
// logged and never returned.
type Store struct {
	kv  KV
	log telemetry.Logger
	ns  string
	now func() time.Time
	w   *writer

	mu          sync.Mutex
	progress    map[string]ProgressRecord
	bookmarks   bookmarkLog
	prefs       Preferences
	consumed    map[string][]string
	quizScores  map[string]map[string]bool
	closeOnce   sync.Once
	closeResult error
}

// Open loads all records once. Missing or unreadable records start from
// defaults.
func Open(ctx context.Context, kv KV, opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = telemetry.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Store{
		kv:         kv,
		log:        log,
		ns:         strings.Trim(strings.TrimSpace(opts.Namespace), "/"),
		now:        now,
		progress:   map[string]ProgressRecord{},
		bookmarks:  bookmarkLog{NextID: 1},
		prefs:      Preferences{Theme: ThemeLight},
		consumed:   map[string][]string{},
		quizScores: map[string]map[string]bool{},
	}
	s.load(ctx, RecordProgress, func(b []byte) error { return decodeMap(b, &s.progress) })
	s.load(ctx, RecordBookmarks, s.decodeBookmarks)
	s.load(ctx, RecordPreferences, s.decodePreferences)
	s.load(ctx, RecordPromptStates, func(b []byte) error { return decodeMap(b, &s.consumed) })
	s.load(ctx, RecordQuizScores, func(b []byte) error { return decodeMap(b, &s.quizScores) })
	s.w = newWriter(kv, log)
	return s
}

func (s *Store) key(record string) string {
	if s.ns == "" {
		return record
	}
	return s.ns + "/" + record
}

func (s *Store) load(ctx context.Context, record string, decode func([]byte) error) {
	key := s.key(record)
	b, found, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.Warn("store.load_failed", map[string]any{"key": key, "error": err.Error()})
		return
	}
	if !found || len(b) == 0 {
		return
	}
	if err := decode(b); err != nil {
		s.log.Warn("store.load_failed", map[string]any{"key": key, "error": err.Error(), "reason": "corrupt"})
		s.reset(record)
	}
}

// decodeMap replaces *dst only when b holds a JSON object; a stored null
// leaves the defaults in place.
func decodeMap[M ~map[K]V, K comparable, V any](b []byte, dst *M) error {
	var m M
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if m == nil {
		return errors.New("record is null")
	}
	*dst = m
	return nil
}

func (s *Store) reset(record string) {
	switch record {
	case RecordProgress:
		s.progress = map[string]ProgressRecord{}
	case RecordBookmarks:
		s.bookmarks = bookmarkLog{NextID: 1}
	case RecordPreferences:
		s.prefs = Preferences{Theme: ThemeLight}
	case RecordPromptStates:
		s.consumed = map[string][]string{}
	case RecordQuizScores:
		s.quizScores = map[string]map[string]bool{}
	}
}

// decodeBookmarks accepts the enveloped form and a bare array without ids.
func (s *Store) decodeBookmarks(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	var log bookmarkLog
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(b, &log.Items); err != nil {
			return err
		}
	} else if err := json.Unmarshal(b, &log); err != nil {
		return err
	}
	var maxID int64
	for _, bm := range log.Items {
		maxID = max(maxID, bm.ID)
	}
	for i := range log.Items {
		if log.Items[i].ID <= 0 {
			maxID++
			log.Items[i].ID = maxID
		}
	}
	log.NextID = max(log.NextID, maxID+1)
	s.bookmarks = log
	return nil
}

func (s *Store) decodePreferences(b []byte) error {
	var dark bool
	if err := json.Unmarshal(b, &dark); err == nil {
		s.prefs = Preferences{Theme: ThemeLight}
		if dark {
			s.prefs.Theme = ThemeDark
		}
		return nil
	}
	var p Preferences
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	p.Theme = normalizeTheme(p.Theme)
	s.prefs = p
	return nil
}

func normalizeTheme(theme string) string {
	if strings.EqualFold(strings.TrimSpace(theme), ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

// persist snapshots one record and hands it to the writer. Callers hold mu.
func (s *Store) persist(record string) {
	var v any
	switch record {
	case RecordProgress:
		v = s.progress
	case RecordBookmarks:
		v = s.bookmarks
	case RecordPreferences:
		v = s.prefs
	case RecordPromptStates:
		v = s.consumed
	case RecordQuizScores:
		v = s.quizScores
	default:
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("store.encode_failed", map[string]any{"record": record, "error": err.Error()})
		return
	}
	s.w.enqueue(s.key(record), b)
}

func (s *Store) Read(lessonID string) ProgressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecord(s.progress[lessonID])
}

// Progress returns a copy of every record.
func (s *Store) Progress() map[string]ProgressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ProgressRecord, len(s.progress))
	for id, rec := range s.progress {
		out[id] = cloneRecord(rec)
	}
	return out
}

func (s *Store) Write(lessonID string, update ProgressUpdate) ProgressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.progress[lessonID]
	if update.Percentage != nil {
		rec.Percentage = clampPercent(*update.Percentage)
	}
	if update.Completed != nil {
		rec.Completed = *update.Completed
		if rec.Completed && rec.CompletedAt == nil {
			ts := s.now().UTC()
			rec.CompletedAt = &ts
		}
	}
	s.progress[lessonID] = rec
	s.persist(RecordProgress)
	return cloneRecord(rec)
}

// MarkCompleted is idempotent: the first call stamps CompletedAt and later
// calls return the record unchanged with changed=false.
func (s *Store) MarkCompleted(lessonID string) (ProgressRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.progress[lessonID]
	if rec.Completed && rec.CompletedAt != nil {
		return cloneRecord(rec), false
	}
	rec.Completed = true
	if rec.CompletedAt == nil {
		ts := s.now().UTC()
		rec.CompletedAt = &ts
	}
	rec.Percentage = 100
	s.progress[lessonID] = rec
	s.persist(RecordProgress)
	return cloneRecord(rec), true
}

// Overall is the share of the given lessons that are completed.
func (s *Store) Overall(lessonIDs []string) int {
	if len(lessonIDs) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	done := 0
	for _, id := range lessonIDs {
		if s.progress[id].Completed {
			done++
		}
	}
	return int(math.Round(float64(done) * 100 / float64(len(lessonIDs))))
}

func (s *Store) AddBookmark(lessonID string, at float64, note string) Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at < 0 || math.IsNaN(at) {
		at = 0
	}
	bm := Bookmark{
		ID:        s.bookmarks.NextID,
		LessonID:  lessonID,
		At:        at,
		Note:      note,
		CreatedAt: s.now().UTC(),
	}
	s.bookmarks.NextID++
	s.bookmarks.Items = append(s.bookmarks.Items, bm)
	s.persist(RecordBookmarks)
	return bm
}

// ListBookmarks returns bookmarks in creation order. An empty lessonID
// lists every lesson.
func (s *Store) ListBookmarks(lessonID string) []Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bookmark, 0, len(s.bookmarks.Items))
	for _, bm := range s.bookmarks.Items {
		if lessonID == "" || bm.LessonID == lessonID {
			out = append(out, bm)
		}
	}
	return out
}

func (s *Store) DeleteBookmark(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.bookmarks.Items, func(b Bookmark) bool { return b.ID == id })
	if idx < 0 {
		return false
	}
	s.bookmarks.Items = slices.Delete(slices.Clone(s.bookmarks.Items), idx, idx+1)
	s.persist(RecordBookmarks)
	return true
}

// RecordAnswer stores the first answer to a prompt. Later answers are
// ignored and report false.
func (s *Store) RecordAnswer(lessonID, promptID string, correct bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	scores := s.quizScores[lessonID]
	if scores == nil {
		scores = map[string]bool{}
		s.quizScores[lessonID] = scores
	}
	if _, exists := scores[promptID]; exists {
		return false
	}
	scores[promptID] = correct
	s.persist(RecordQuizScores)
	return true
}

func (s *Store) QuizScores(lessonID string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]bool{}
	for id, ok := range s.quizScores[lessonID] {
		out[id] = ok
	}
	return out
}

// SetConsumed replaces the consumed prompt set of a lesson.
func (s *Store) SetConsumed(lessonID string, promptIDs []string) {
	ids := slices.Clone(promptIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Equal(s.consumed[lessonID], ids) {
		return
	}
	s.consumed[lessonID] = ids
	s.persist(RecordPromptStates)
}

func (s *Store) Consumed(lessonID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.consumed[lessonID])
}

func (s *Store) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *Store) SetTheme(theme string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	theme = normalizeTheme(theme)
	if s.prefs.Theme == theme {
		return
	}
	s.prefs.Theme = theme
	s.persist(RecordPreferences)
}

func (s *Store) SetLastLesson(lessonID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs.LastLessonID == lessonID {
		return
	}
	s.prefs.LastLessonID = lessonID
	s.persist(RecordPreferences)
}

func (s *Store) Flush(ctx context.Context) error {
	return s.w.flush(ctx)
}

// Close drains pending writes and closes the backend.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		err := s.w.stop(ctx)
		s.closeResult = errors.Join(err, s.kv.Close())
	})
	return s.closeResult
}

func cloneRecord(rec ProgressRecord) ProgressRecord {
	if rec.CompletedAt != nil {
		ts := *rec.CompletedAt
		rec.CompletedAt = &ts
	}
	return rec
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
