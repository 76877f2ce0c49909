package room

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"pomodoro/collab/internal/model"
	"pomodoro/collab/internal/timer"
)

const (
	DefaultMaxParticipants   = 20
	DefaultInactivityTimeout = 2 * time.Hour
)

type Options struct {
	Clock             clockwork.Clock
	DefaultSettings   model.TimerSettings
	MaxParticipants   int
	InactivityTimeout time.Duration
	GenerateCode      CodeGenerator
}

// entry serializes every read and write of one room. closed is set under mu
// when the room is deleted so that callers who looked the entry up before the
// deletion see ErrNotFound instead of mutating a detached room.
type entry struct {
	mu     sync.Mutex
	room   *model.Room
	closed bool
}

// Store is the in-memory registry of live rooms. Lock order is entry.mu
// before Store.mu; the registry lock is never held while waiting on a room.
type Store struct {
	clock             clockwork.Clock
	defaultSettings   model.TimerSettings
	maxParticipants   int
	inactivityTimeout time.Duration
	generateCode      CodeGenerator

	mu    sync.RWMutex
	rooms map[string]*entry
}

func NewStore(opts Options) *Store {
	s := &Store{
		clock:             opts.Clock,
		defaultSettings:   opts.DefaultSettings,
		maxParticipants:   opts.MaxParticipants,
		inactivityTimeout: opts.InactivityTimeout,
		generateCode:      opts.GenerateCode,
		rooms:             make(map[string]*entry),
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if !s.defaultSettings.Valid() {
		s.defaultSettings = model.DefaultTimerSettings()
	}
	if s.maxParticipants <= 0 {
		s.maxParticipants = DefaultMaxParticipants
	}
	if s.inactivityTimeout <= 0 {
		s.inactivityTimeout = DefaultInactivityTimeout
	}
	if s.generateCode == nil {
		s.generateCode = RandomCode
	}
	return s
}

type CreateParams struct {
	HostID    string
	HostName  string
	Name      string
	Settings  *model.SettingsPatch
	Inherited *model.InheritedTimerState
}

// Create registers a new room with the host as its only participant. Settings
// are the store defaults, overlaid by the inherited timer's settings, overlaid
// by params.Settings.
func (s *Store) Create(params CreateParams) (model.RoomResponse, error) {
	if strings.TrimSpace(params.HostID) == "" || strings.TrimSpace(params.Name) == "" {
		return model.RoomResponse{}, fmt.Errorf("%w: host id and name are required", ErrInvalid)
	}

	s.Sweep()

	settings := s.defaultSettings
	if params.Inherited != nil {
		settings = params.Inherited.Settings.ApplyTo(settings)
	}
	settings = params.Settings.ApplyTo(settings)
	if !settings.Valid() {
		return model.RoomResponse{}, fmt.Errorf("%w: durations must be positive and the long break interval at least 2", ErrInvalid)
	}

	now := s.clock.Now().UTC()
	state := timer.Initial(settings)
	if params.Inherited != nil {
		state = timer.FromInherited(*params.Inherited, settings, now)
	}

	r := &model.Room{
		Name:           params.Name,
		HostID:         params.HostID,
		HostName:       params.HostName,
		CreatedAt:      now,
		LastActivityAt: now,
		Settings:       settings,
		TimerState:     state,
		Participants:   []model.Participant{{ID: params.HostID, Name: params.HostName, JoinedAt: now}},
		Version:        1,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return model.RoomResponse{}, fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := s.rooms[code]; taken {
			continue
		}
		r.ID = code
		s.rooms[code] = &entry{room: r}
		return Project(r, now), nil
	}
	return model.RoomResponse{}, fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, maxCodeAttempts)
}

// Get returns the room as observed now, after resolving an expired phase.
func (s *Store) Get(id string) (model.RoomResponse, error) {
	e := s.lookup(id)
	if e == nil {
		return model.RoomResponse{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return model.RoomResponse{}, ErrNotFound
	}
	return Project(e.room, s.clock.Now().UTC()), nil
}

// List projects every live room, oldest first.
func (s *Store) List() []model.RoomResponse {
	entries := s.entries()
	rooms := make([]model.RoomResponse, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.closed {
			rooms = append(rooms, Project(e.room, s.clock.Now().UTC()))
		}
		e.mu.Unlock()
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Join adds a participant. Joining again with a present id changes nothing
// but the activity time, so reconnects never count against the limit.
func (s *Store) Join(id, participantID, participantName string) (model.RoomResponse, error) {
	if strings.TrimSpace(participantID) == "" {
		return model.RoomResponse{}, fmt.Errorf("%w: participant id is required", ErrInvalid)
	}
	return s.mutate(id, true, nil, func(r *model.Room, now time.Time) (bool, error) {
		if r.HasParticipant(participantID) {
			return false, nil
		}
		if len(r.Participants) >= s.maxParticipants {
			return false, ErrFull
		}
		r.Participants = append(r.Participants, model.Participant{ID: participantID, Name: participantName, JoinedAt: now})
		return true, nil
	})
}

// Leave removes a participant. The room is deleted when it empties; when the
// host leaves, the earliest remaining joiner becomes host. It reports whether
// the room was deleted.
func (s *Store) Leave(id, participantID string) (bool, error) {
	e := s.lookup(id)
	if e == nil {
		return false, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, ErrNotFound
	}

	r := e.room
	now := s.clock.Now().UTC()
	resolve(r, now)

	if !r.HasParticipant(participantID) {
		return false, nil
	}

	remaining := make([]model.Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		if p.ID != participantID {
			remaining = append(remaining, p)
		}
	}
	r.Participants = remaining

	if len(remaining) == 0 {
		s.close(id, e)
		log.Info().Str("room_id", id).Msg("room closed: last participant left")
		return true, nil
	}

	if r.HostID == participantID {
		r.HostID = remaining[0].ID
		r.HostName = remaining[0].Name
		log.Info().
			Str("room_id", id).
			Str("from", participantID).
			Str("to", r.HostID).
			Msg("room host transferred")
	}
	r.LastActivityAt = now
	r.Version++
	return false, nil
}

// End deletes the room. Authorization is up to checks; the store only makes
// sure deletion is atomic with them.
func (s *Store) End(id string, checks ...Check) (model.RoomResponse, error) {
	e := s.lookup(id)
	if e == nil {
		return model.RoomResponse{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return model.RoomResponse{}, ErrNotFound
	}

	now := s.clock.Now().UTC()
	for _, check := range checks {
		if err := check(e.room); err != nil {
			return Project(e.room, now), err
		}
	}
	s.close(id, e)
	return model.RoomResponse{}, nil
}

// Start runs the timer. Elapsed time is kept so a paused phase resumes where
// it stopped. Starting a running timer is a no-op.
func (s *Store) Start(id string, checks ...Check) (model.RoomResponse, error) {
	return s.mutate(id, true, checks, func(r *model.Room, now time.Time) (bool, error) {
		if r.TimerState.Status == model.StatusRunning {
			return false, nil
		}
		startedAt := now
		r.TimerState.Status = model.StatusRunning
		r.TimerState.StartedAt = &startedAt
		return true, nil
	})
}

// Pause folds the running interval into Elapsed.
func (s *Store) Pause(id string, checks ...Check) (model.RoomResponse, error) {
	return s.mutate(id, true, checks, func(r *model.Room, now time.Time) (bool, error) {
		if r.TimerState.Status != model.StatusRunning {
			return false, nil
		}
		r.TimerState.Elapsed += timer.LiveElapsed(r.TimerState, now)
		r.TimerState.Status = model.StatusPaused
		r.TimerState.StartedAt = nil
		return true, nil
	})
}

// Reset returns to the first work phase of a new cycle.
func (s *Store) Reset(id string, checks ...Check) (model.RoomResponse, error) {
	return s.mutate(id, false, checks, func(r *model.Room, _ time.Time) (bool, error) {
		r.TimerState = timer.Initial(r.Settings)
		return true, nil
	})
}

// Skip advances from the recorded phase whether or not it has run out. It
// does not resolve first, so a skip racing an expiry advances exactly once.
func (s *Store) Skip(id string, checks ...Check) (model.RoomResponse, error) {
	return s.mutate(id, false, checks, func(r *model.Room, _ time.Time) (bool, error) {
		timer.Advance(&r.TimerState, r.Settings)
		return true, nil
	})
}

// Sweep deletes rooms idle for longer than the inactivity timeout and returns
// their ids.
func (s *Store) Sweep() []string {
	var removed []string
	now := s.clock.Now().UTC()
	for _, e := range s.entries() {
		e.mu.Lock()
		if !e.closed && now.Sub(e.room.LastActivityAt) > s.inactivityTimeout {
			id := e.room.ID
			s.close(id, e)
			removed = append(removed, id)
			log.Info().
				Str("room_id", id).
				Time("last_activity_at", e.room.LastActivityAt).
				Msg("room swept after inactivity")
		}
		e.mu.Unlock()
	}
	return removed
}

type mutation func(r *model.Room, now time.Time) (bool, error)

// mutate runs fn inside the room's critical section. Every successful call
// counts as activity; the version only moves when state changed. When a check
// fails the current projection is returned with the error.
func (s *Store) mutate(id string, resolveFirst bool, checks []Check, fn mutation) (model.RoomResponse, error) {
	e := s.lookup(id)
	if e == nil {
		return model.RoomResponse{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return model.RoomResponse{}, ErrNotFound
	}

	r := e.room
	now := s.clock.Now().UTC()
	if resolveFirst {
		resolve(r, now)
	}
	for _, check := range checks {
		if err := check(r); err != nil {
			return Project(r, now), err
		}
	}

	changed, err := fn(r, now)
	if err != nil {
		return Project(r, now), err
	}
	r.LastActivityAt = now
	if changed {
		r.Version++
	}
	return Project(r, now), nil
}

func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id]
}

func (s *Store) entries() []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*entry, 0, len(s.rooms))
	for _, e := range s.rooms {
		entries = append(entries, e)
	}
	return entries
}

// close must be called with e.mu held.
func (s *Store) close(id string, e *entry) {
	e.closed = true
	s.mu.Lock()
	if s.rooms[id] == e {
		delete(s.rooms, id)
	}
	s.mu.Unlock()
}
