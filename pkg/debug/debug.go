// Package debug serializes interactive error inspection across worker
// goroutines. At most one inspection session is active process-wide at
// any instant; hooks installed by different layers chain instead of
// replacing one another.
package debug

import "sync"

// SessionLock is a reentrant lock keyed by an explicit owner token.
// The same owner may re-acquire it without deadlocking, so nested
// inspection sessions from one task compose, while sessions from
// other owners block until the first releases.
type SessionLock struct {
	mu    sync.Mutex
	freed *sync.Cond
	owner any
	depth int
}

// NewSessionLock creates a new session lock
func NewSessionLock() *SessionLock {
	l := &SessionLock{}
	l.freed = sync.NewCond(&l.mu)
	return l
}

// Acquire takes the lock on behalf of owner, blocking while a
// different owner holds it. Reentrant for the same owner.
func (l *SessionLock) Acquire(owner any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.depth > 0 && l.owner != owner {
		l.freed.Wait()
	}
	l.owner = owner
	l.depth++
}

// Release undoes one Acquire by the same owner. The lock frees once
// the depth returns to zero.
func (l *SessionLock) Release(owner any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.depth == 0 || l.owner != owner {
		panic("debug: session lock released by non-owner")
	}
	l.depth--
	if l.depth == 0 {
		l.owner = nil
		l.freed.Signal()
	}
}

// Held reports whether owner currently holds the lock
func (l *SessionLock) Held(owner any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.depth > 0 && l.owner == owner
}

// Inspector is an inspection hook. It receives the error under
// inspection and the previously installed hook, so successive
// installations compose instead of overriding.
type Inspector func(err error, next func(error))

// Serializer coordinates inspection sessions. The zero value is not
// usable; create one with NewSerializer or use the package default.
type Serializer struct {
	lock *SessionLock

	mu        sync.Mutex
	hook      func(error)
	inspected error
}

// NewSerializer creates a new serializer
func NewSerializer() *Serializer {
	return &Serializer{lock: NewSessionLock()}
}

// Install chains hook in front of any previously installed hook. The
// hook's next argument invokes the prior chain; passing the error on
// is the hook's choice.
func (s *Serializer) Install(hook Inspector) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.hook
	if prev == nil {
		prev = func(error) {}
	}
	s.hook = func(err error) { hook(err, prev) }
}

// Inspect runs one inspection session for err on behalf of owner.
// The error is recorded in the inspected slot before the session
// starts, so a transfer issued from inside the session can default to
// it. The session itself runs under the process-wide lock.
func (s *Serializer) Inspect(owner any, err error) {
	s.mu.Lock()
	s.inspected = err
	hook := s.hook
	s.mu.Unlock()

	if hook == nil {
		return
	}

	s.lock.Acquire(owner)
	defer s.lock.Release(owner)
	hook(err)
}

// InspectedError returns the error currently (or most recently) under
// inspection.
func (s *Serializer) InspectedError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inspected
}

// Lock exposes the session lock, for callers that need to serialize
// work with active sessions.
func (s *Serializer) Lock() *SessionLock {
	return s.lock
}

// Default is the process-wide serializer used when none is configured
var (
	defaultSerializer     *Serializer
	defaultSerializerOnce sync.Once
)

// Default returns the process-wide serializer
func Default() *Serializer {
	defaultSerializerOnce.Do(func() {
		defaultSerializer = NewSerializer()
	})
	return defaultSerializer
}
