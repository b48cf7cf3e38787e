package detecs

import (
	"sync"

	"github.com/google/uuid"
)

// WorldID is an opaque unique identifier for one world instance.
type WorldID uuid.UUID

// NewWorldID issues a fresh identifier.
func NewWorldID() WorldID {
	return WorldID(uuid.New())
}

func (id WorldID) String() string {
	return uuid.UUID(id).String()
}

// WorldDirectory maps identifiers to live worlds. Holders of a
// WorldHandle re-resolve through the directory on every use instead of
// caching a *World, so a destroyed world cannot be reached through a
// stale reference.
type WorldDirectory struct {
	mu     sync.RWMutex
	worlds map[WorldID]*World
}

func NewWorldDirectory() *WorldDirectory {
	return &WorldDirectory{worlds: make(map[WorldID]*World)}
}

// Add registers a world and returns its handle.
func (d *WorldDirectory) Add(w *World) WorldHandle {
	d.mu.Lock()
	d.worlds[w.ID()] = w
	d.mu.Unlock()
	return WorldHandle{dir: d, id: w.ID()}
}

// Remove drops a world from the directory. Outstanding handles start
// failing to resolve immediately; the world itself is closed by the
// caller.
func (d *WorldDirectory) Remove(id WorldID) {
	d.mu.Lock()
	delete(d.worlds, id)
	d.mu.Unlock()
}

// Handle returns a handle for an id without checking liveness.
func (d *WorldDirectory) Handle(id WorldID) WorldHandle {
	return WorldHandle{dir: d, id: id}
}

// WorldHandle is an (owner, id) pair. It holds no direct world
// reference; Resolve must be called before each use.
type WorldHandle struct {
	dir *WorldDirectory
	id  WorldID
}

// ID returns the world identifier the handle refers to.
func (h WorldHandle) ID() WorldID { return h.id }

// Resolve returns the live world or ErrWorldDestroyed.
func (h WorldHandle) Resolve() (*World, error) {
	if h.dir == nil {
		return nil, ErrWorldDestroyed
	}
	h.dir.mu.RLock()
	w, ok := h.dir.worlds[h.id]
	h.dir.mu.RUnlock()
	if !ok {
		return nil, ErrWorldDestroyed
	}
	return w, nil
}
