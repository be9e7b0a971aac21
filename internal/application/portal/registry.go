package portal

import (
	"sync"

	"go.uber.org/zap"

	"github.com/erp/portal/internal/domain/identity"
)

// SessionCloser disconnects the live clients of a session.
type SessionCloser interface {
	CloseSession(sessionID string)
}

// Registry holds one workspace per logged-in session and drops it when the
// session logs out.
type Registry struct {
	deps   Dependencies
	closer SessionCloser // optional

	mu         sync.Mutex
	workspaces map[string]*entry
}

type entry struct {
	workspace   *Workspace
	unsubscribe func()
}

// NewRegistry creates an empty Registry. closer may be nil.
func NewRegistry(deps Dependencies, closer SessionCloser) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Registry{
		deps:       deps,
		closer:     closer,
		workspaces: make(map[string]*entry),
	}
}

// Open returns the workspace of session, creating it and activating the
// default tabs on first use.
func (r *Registry) Open(session *identity.Session) *Workspace {
	id := session.ID()

	r.mu.Lock()
	if e, ok := r.workspaces[id]; ok {
		r.mu.Unlock()
		return e.workspace
	}
	w := NewWorkspace(id, r.deps)
	unsubscribe := session.Subscribe(func(evt identity.Event) {
		if evt.Type == identity.EventLoggedOut {
			go r.Drop(evt.SessionID)
		}
	})
	r.workspaces[id] = &entry{workspace: w, unsubscribe: unsubscribe}
	n := len(r.workspaces)
	r.mu.Unlock()

	r.deps.Metrics.SetActiveWorkspaces(n)
	r.deps.Logger.Debug("Workspace opened", zap.String("session_id", id))

	w.Open()
	return w
}

// Get returns the workspace of sessionID if one is open.
func (r *Registry) Get(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.workspaces[sessionID]
	if !ok {
		return nil, false
	}
	return e.workspace, true
}

// Drop closes and forgets the workspace of sessionID.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	e, ok := r.workspaces[sessionID]
	delete(r.workspaces, sessionID)
	n := len(r.workspaces)
	r.mu.Unlock()
	if !ok {
		return
	}

	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.workspace.Close()
	if r.closer != nil {
		r.closer.CloseSession(sessionID)
	}
	r.deps.Metrics.SetActiveWorkspaces(n)
	r.deps.Logger.Debug("Workspace dropped", zap.String("session_id", sessionID))
}

// Len returns the number of open workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Close drops every workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.workspaces))
	for id := range r.workspaces {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Drop(id)
	}
}
