package session

import (
	"errors"
	"sync"
)

// ErrNoSession is returned for an unknown session ID.
var ErrNoSession = errors.New("no such session")

// Registry holds the live sessions of a server and serializes access to each one.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	options  []Option
}

type entry struct {
	mu sync.Mutex
	s  *Session
}

// NewRegistry creates an empty registry; options are applied to every session it creates.
func NewRegistry(options ...Option) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		options:  options,
	}
}

// Create starts a new session and returns its ID.
func (r *Registry) Create() string {
	s := New(r.options...)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = &entry{s: s}
	return s.ID
}

// With runs f while holding the session's lock and returns f's error.
func (r *Registry) With(id string, f func(*Session) error) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return ErrNoSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return f(e.s)
}

// Delete forgets a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNoSession
	}
	delete(r.sessions, id)
	return nil
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
