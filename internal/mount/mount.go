// Package mount manages UI roots mounted into named page containers.
//
// A Manager owns a single slot: at most one live Root is mounted into its
// container at any time. Showing a new request tears the current root down
// first. Every teardown of a live root calls the host's refresh callback
// exactly once so the host can reload whatever the closed form may have
// changed.
package mount

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrContainerNotFound is returned by Show when the document has no
// container with the manager's id.
var ErrContainerNotFound = errors.New("mount: container not found")

// Request describes what to render into a slot.
type Request interface {
	request()
}

// EditExisting opens the editor for a stored calendar event.
type EditExisting struct {
	EventID int64
}

// CreateNew opens an empty editor prefilled with a selected time range.
type CreateNew struct {
	Start time.Time
	End   time.Time
}

// EnrollTwoFactor opens the two-factor enrollment form for a user.
type EnrollTwoFactor struct {
	UserID int64
}

func (EditExisting) request()    {}
func (CreateNew) request()       {}
func (EnrollTwoFactor) request() {}

// Document resolves container ids to containers.
type Document interface {
	Container(id string) (Container, bool)
}

// Container creates roots bound to itself.
type Container interface {
	CreateRoot() Root
}

// Root owns one rendered UI tree.
//
// Render must not call onClose synchronously; onClose re-enters the
// Manager. Unmount must be safe to call once after a failed Render.
type Root interface {
	Render(req Request, onClose func()) error
	Unmount()
}

// Manager owns the single slot of one container.
type Manager struct {
	mu          sync.Mutex
	doc         Document
	containerID string
	refresh     func()
	root        Root
	logger      *slog.Logger
}

// NewManager returns a Manager for containerID in doc. refresh is called
// after every teardown of a live root and may be nil. It runs while the
// Manager is locked and must not call back into it.
func NewManager(doc Document, containerID string, refresh func(), logger *slog.Logger) *Manager {
	if refresh == nil {
		refresh = func() {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		doc:         doc,
		containerID: containerID,
		refresh:     refresh,
		logger:      logger.With("container", containerID),
	}
}

// ContainerID returns the id of the managed container.
func (m *Manager) ContainerID() string {
	return m.containerID
}

// Show replaces whatever is mounted with a new root rendering req. When the
// container is missing Show returns ErrContainerNotFound and leaves the
// slot untouched.
func (m *Manager) Show(req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	container, ok := m.doc.Container(m.containerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, m.containerID)
	}

	m.teardown()

	root := container.CreateRoot()
	m.root = root
	if err := root.Render(req, m.Close); err != nil {
		root.Unmount()
		m.root = nil
		return fmt.Errorf("render %T: %w", req, err)
	}

	m.logger.Debug("mounted", "request", fmt.Sprintf("%T", req))
	return nil
}

// Close unmounts the live root, if any. It is the onClose callback handed
// to every rendered tree.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardown()
}

// Mounted reports whether a root is live.
func (m *Manager) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root != nil
}

// teardown must be called with mu held.
func (m *Manager) teardown() {
	if m.root == nil {
		return
	}
	m.root.Unmount()
	m.root = nil
	m.logger.Debug("unmounted")
	m.refresh()
}

// Registry holds one Manager per container id.
type Registry struct {
	mu       sync.RWMutex
	managers map[string]*Manager
}

func NewRegistry() *Registry {
	return &Registry{managers: make(map[string]*Manager)}
}

// Register adds m under its container id, replacing any previous manager.
func (r *Registry) Register(m *Manager) {
	r.mu.Lock()
	r.managers[m.ContainerID()] = m
	r.mu.Unlock()
}

func (r *Registry) Get(containerID string) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[containerID]
	return m, ok
}

// Show routes req to the manager of containerID.
func (r *Registry) Show(containerID string, req Request) error {
	m, ok := r.Get(containerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
	}
	return m.Show(req)
}

// Close tears down the root mounted in containerID, if any.
func (r *Registry) Close(containerID string) error {
	m, ok := r.Get(containerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, containerID)
	}
	m.Close()
	return nil
}
