// Package island renders server-side UI islands into the containers of a
// browser page.
//
// A Page is the server's view of one session's current document: the set
// of containers the last full page load declared and the HTML each one
// holds. Each configured slot gets a mount.Manager, so showing a form in a
// container the current page does not have fails with
// mount.ErrContainerNotFound.
package island

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dukerupert/ministryx/internal/mount"
)

// Well-known container ids.
const (
	CalendarEventEditor = "calendar-event-editor"
	TwoFactorEnrollment = "two-factor-enrollment"
)

// ErrNotMounted is returned when a container holds no island.
var ErrNotMounted = errors.New("island: nothing mounted")

// View renders a request into the HTML of an island.
type View func(req mount.Request) (template.HTML, error)

// Slot wires a container id to its view and the host refresh callback.
type Slot struct {
	ContainerID string
	View        View
	Refresh     func()
}

// Page implements mount.Document for one session.
//
// op serialises Load, Show and Close so a mount always lands in the
// document its manager belongs to. mu guards the fields below it.
type Page struct {
	op       sync.Mutex
	mu       sync.Mutex
	slots    map[string]Slot
	present  map[string]*container
	registry *mount.Registry
	logger   *slog.Logger
}

type container struct {
	page *Page
	slot Slot
	html template.HTML
	root *root
}

type root struct {
	id      string
	c       *container
	req     mount.Request
	onClose func()
}

// NewPage returns an empty document that knows the given slots.
func NewPage(logger *slog.Logger, slots ...Slot) *Page {
	p := &Page{
		slots:   make(map[string]Slot, len(slots)),
		present: make(map[string]*container),
		logger:  logger,
	}
	for _, s := range slots {
		p.slots[s.ContainerID] = s
	}
	p.registry = p.newRegistry()
	return p
}

func (p *Page) newRegistry() *mount.Registry {
	reg := mount.NewRegistry()
	for id, s := range p.slots {
		reg.Register(mount.NewManager(p, id, s.Refresh, p.logger))
	}
	return reg
}

// Load replaces the document with a freshly loaded page declaring
// containerIDs. Roots of the previous page disappear with it and no
// refresh callbacks run. Unknown ids are ignored.
func (p *Page) Load(containerIDs ...string) {
	p.op.Lock()
	defer p.op.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()

	p.present = make(map[string]*container, len(containerIDs))
	for _, id := range containerIDs {
		s, ok := p.slots[id]
		if !ok {
			p.logger.Warn("unknown island container", "container", id)
			continue
		}
		p.present[id] = &container{page: p, slot: s}
	}
	p.registry = p.newRegistry()
}

// Container implements mount.Document.
func (p *Page) Container(id string) (mount.Container, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.present[id]
	if !ok {
		return nil, false
	}
	return c, true
}

// Show mounts req into containerID, replacing the current island.
func (p *Page) Show(containerID string, req mount.Request) (template.HTML, error) {
	p.op.Lock()
	defer p.op.Unlock()

	p.mu.Lock()
	reg := p.registry
	p.mu.Unlock()

	if err := reg.Show(containerID, req); err != nil {
		return "", err
	}
	return p.Fragment(containerID)
}

// Close runs the onClose callback of the island mounted in containerID.
// Closing an empty container is a no-op.
func (p *Page) Close(containerID string) error {
	p.op.Lock()
	defer p.op.Unlock()

	p.mu.Lock()
	c, ok := p.present[containerID]
	var r *root
	if ok {
		r = c.root
	}
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", mount.ErrContainerNotFound, containerID)
	}
	if r == nil {
		return nil
	}
	r.onClose()
	return nil
}

// Fragment returns the current HTML of containerID, empty when nothing is
// mounted.
func (p *Page) Fragment(containerID string) (template.HTML, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.present[containerID]
	if !ok {
		return "", fmt.Errorf("%w: %s", mount.ErrContainerNotFound, containerID)
	}
	return c.html, nil
}

// Request returns the request the island in containerID was mounted with.
func (p *Page) Request(containerID string) (mount.Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.present[containerID]
	if !ok || c.root == nil {
		return nil, false
	}
	return c.root.req, true
}

// Replace swaps the body of the island mounted in containerID, keeping the
// root and its request, and returns the new fragment.
func (p *Page) Replace(containerID string, body template.HTML) (template.HTML, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.present[containerID]
	if !ok {
		return "", fmt.Errorf("%w: %s", mount.ErrContainerNotFound, containerID)
	}
	if c.root == nil {
		return "", fmt.Errorf("%w: %s", ErrNotMounted, containerID)
	}
	c.html = c.root.wrap(body)
	return c.html, nil
}

// Mounted reports whether containerID currently holds an island.
func (p *Page) Mounted(containerID string) bool {
	p.mu.Lock()
	reg := p.registry
	p.mu.Unlock()
	m, ok := reg.Get(containerID)
	return ok && m.Mounted()
}

func (c *container) CreateRoot() mount.Root {
	return &root{id: uuid.NewString(), c: c}
}

func (r *root) Render(req mount.Request, onClose func()) error {
	body, err := r.c.slot.View(req)
	if err != nil {
		return err
	}

	html := r.wrap(body)

	p := r.c.page
	p.mu.Lock()
	r.req = req
	r.onClose = onClose
	r.c.root = r
	r.c.html = html
	p.mu.Unlock()
	return nil
}

func (r *root) wrap(body template.HTML) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<div class="island" data-container=%q data-root-id=%q>%s</div>`,
		r.c.slot.ContainerID, r.id, body,
	))
}

func (r *root) Unmount() {
	p := r.c.page
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.c.root == r {
		r.c.root = nil
		r.c.html = ""
	}
}

// Sessions maps session ids to their pages.
type Sessions struct {
	mu      sync.Mutex
	pages   map[int64]*Page
	newPage func(sessionID int64) *Page
}

// NewSessions returns a registry that creates pages on first use.
func NewSessions(newPage func(sessionID int64) *Page) *Sessions {
	return &Sessions{
		pages:   make(map[int64]*Page),
		newPage: newPage,
	}
}

// Page returns the page of sessionID, creating it if needed.
func (s *Sessions) Page(sessionID int64) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[sessionID]
	if !ok {
		p = s.newPage(sessionID)
		s.pages[sessionID] = p
	}
	return p
}

// Drop forgets the page of sessionID.
func (s *Sessions) Drop(sessionID int64) {
	s.mu.Lock()
	delete(s.pages, sessionID)
	s.mu.Unlock()
}

// Prune drops every page whose session keep rejects and returns how many
// were dropped.
func (s *Sessions) Prune(keep func(sessionID int64) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id := range s.pages {
		if !keep(id) {
			delete(s.pages, id)
			n++
		}
	}
	return n
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}
