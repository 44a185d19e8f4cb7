package loader

import (
	"sync"
	"time"

	e "github.com/gartstein/empresas/internal/empresas/errors"
)

// Ticket identifies one in-flight page request on a Pager.
type Ticket struct {
	gen  uint64
	Term string
	Page int
}

// State is a read-only view of a Pager.
type State struct {
	Term    string `json:"term"`
	Page    int    `json:"page"`
	Total   *int64 `json:"total"`
	Loaded  int    `json:"loaded"`
	HasMore bool   `json:"has_more"`
}

// Pager tracks one visitor's search: current term, last committed page,
// total count and rows loaded so far. Every request bumps a generation
// counter and only the latest request may commit, so a slow response can
// never overwrite a newer one.
type Pager struct {
	mu        sync.Mutex
	term      string
	page      int
	total     *int64
	loaded    int
	lastEmpty bool
	started   bool
	gen       uint64
	touched   time.Time
}

// Begin resets the pager for a new term and returns the ticket for its
// first page.
func (p *Pager) Begin(term string) Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.term = term
	p.page = 0
	p.total = nil
	p.loaded = 0
	p.lastEmpty = false
	p.started = false
	return Ticket{gen: p.gen, Term: term, Page: 0}
}

// Next returns the ticket for the page after the last committed one, or
// false when there is nothing more to load.
func (p *Pager) Next() (Ticket, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		p.gen++
		return Ticket{gen: p.gen, Term: p.term, Page: 0}, true
	}
	if !p.hasMore() {
		return Ticket{}, false
	}
	p.gen++
	return Ticket{gen: p.gen, Term: p.term, Page: p.page + 1}, true
}

// Commit applies a fetched page if its ticket is still current.
func (p *Pager) Commit(t Ticket, page *Page) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.gen != p.gen {
		return e.ErrStaleRequest
	}
	p.started = true
	p.page = t.Page
	p.total = page.Total
	p.loaded += len(page.Rows)
	if p.total != nil && int64(p.loaded) > *p.total {
		// the table shrank between pages
		p.loaded = int(*p.total)
	}
	p.lastEmpty = len(page.Rows) == 0
	return nil
}

// Fail clears the counters after a failed request, unless a newer request
// has taken over.
func (p *Pager) Fail(t Ticket) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.gen != p.gen {
		return
	}
	p.page = 0
	p.total = nil
	p.loaded = 0
	p.lastEmpty = true
	p.started = true
}

// HasMore reports whether "load more" should stay visible: false once the
// loaded count reaches a known total, or when the total is unknown and the
// last page came back empty.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore()
}

func (p *Pager) hasMore() bool {
	if p.total != nil {
		return int64(p.loaded) < *p.total
	}
	return !p.lastEmpty
}

func (p *Pager) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Term:    p.term,
		Page:    p.page,
		Total:   p.total,
		Loaded:  p.loaded,
		HasMore: p.hasMore(),
	}
}

// Pagers holds one Pager per visitor id and forgets idle ones.
type Pagers struct {
	mu     sync.Mutex
	pagers map[string]*Pager
	idle   time.Duration
	now    func() time.Time
}

// NewPagers returns a registry dropping pagers idle longer than idle.
func NewPagers(idle time.Duration) *Pagers {
	return &Pagers{
		pagers: make(map[string]*Pager),
		idle:   idle,
		now:    time.Now,
	}
}

// Get returns the visitor's pager, creating it if needed.
func (r *Pagers) Get(id string) *Pager {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweep(now)
	p, ok := r.pagers[id]
	if !ok {
		p = &Pager{}
		r.pagers[id] = p
	}
	p.mu.Lock()
	p.touched = now
	p.mu.Unlock()
	return p
}

// Drop forgets the visitor's pager.
func (r *Pagers) Drop(id string) {
	r.mu.Lock()
	delete(r.pagers, id)
	r.mu.Unlock()
}

// Len is the number of live pagers.
func (r *Pagers) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pagers)
}

func (r *Pagers) sweep(now time.Time) {
	for id, p := range r.pagers {
		p.mu.Lock()
		stale := now.Sub(p.touched) > r.idle
		p.mu.Unlock()
		if stale {
			delete(r.pagers, id)
		}
	}
}
