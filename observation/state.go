/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package observation

import (
	"maps"
	"sync"
)

// Well-known observation state keys. Collaborators should prefix their own
// keys with the contributing component (e.g. "hook.output.status").
const (
	KeySessionID          = "session_id"
	KeyTenantID           = "tenant_id"
	KeyUserID             = "user_id"
	KeyInput              = "input"
	KeyMessages           = "messages"
	KeyCurrentRoundTaskID = "current_round_task_id"
)

// State is a per-session key/value scratch space for cross-cutting
// telemetry. Entries are additive unless explicitly removed; concurrent
// writers are safe with last-write-wins semantics per key. No cross-key
// read-modify-write contract is provided.
type State struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewState creates an empty observation state.
func NewState() *State {
	return &State{data: make(map[string]any)}
}

// NewStateFrom creates an observation state seeded with the given entries.
func NewStateFrom(initial map[string]any) *State {
	s := NewState()
	s.PutAll(initial)
	return s
}

// Put registers a single observation entry. Nil values and empty keys are
// ignored so callers do not need to guard best-effort writes.
func (s *State) Put(key string, value any) {
	if key == "" || value == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// PutAll registers every non-nil entry of the given map.
func (s *State) PutAll(entries map[string]any) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		if k != "" && v != nil {
			s.data[k] = v
		}
	}
}

// Get returns the value for key and whether it is present.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// GetOrDefault returns the value for key, or def if absent.
func (s *State) GetOrDefault(key string, def any) any {
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

// Contains reports whether key is present.
func (s *State) Contains(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Remove deletes key and returns the removed value, if any.
func (s *State) Remove(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	delete(s.data, key)
	return v, ok
}

// All returns a snapshot copy of every entry.
func (s *State) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Clear removes every entry.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.data)
}

// Len returns the number of entries.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// StateCarrier is an optional capability interface for collaborators that
// expose an observation state. Components that want to contribute
// telemetry type-assert their collaborator against it and silently skip
// when the capability is absent.
type StateCarrier interface {
	ObservationState() *State
}

// SessionStore hands out one State per session and clears it when the
// session ends.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*State
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*State)}
}

// Session returns the state for sessionID, creating it on first use.
func (s *SessionStore) Session(sessionID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = NewState()
		st.Put(KeySessionID, sessionID)
		s.sessions[sessionID] = st
	}
	return st
}

// EndSession clears and removes the state for sessionID.
func (s *SessionStore) EndSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[sessionID]; ok {
		st.Clear()
		delete(s.sessions, sessionID)
	}
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
