package runner

import "sync"

// Pool hands out Runners keyed by core id, grounded on
// original_source/sts/lrPool.h: each core keeps its own free list of idle
// runners so a coroutine task resumed on the same core reuses the same
// goroutine+OS-thread pair instead of spinning up a fresh one every step.
// When haveSharedCores is set, cores with no dedicated runner of their own
// fall back to a single shared free list (mirroring lrPool's
// haveSharedCores_ toggle for oversubscribed schedules where more tasks
// pause than there are cores to dedicate one runner each).
type Pool struct {
	mu          sync.Mutex
	perCore     map[int][]*Runner
	shared      []*Runner
	cores       map[int]bool
	haveShared  bool
	outstanding int
}

// NewPool returns an empty pool. Cores must be registered with AddCore or
// AddCores before Get can hand out a dedicated runner for them.
func NewPool() *Pool {
	return &Pool{
		perCore: make(map[int][]*Runner),
		cores:   make(map[int]bool),
	}
}

// AddCore registers a core as available for dedicated runners.
func (p *Pool) AddCore(core int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cores[core] = true
}

// AddCores registers every core in cores.
func (p *Pool) AddCores(cores []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range cores {
		p.cores[c] = true
	}
}

// SetSharedCores toggles whether cores without a dedicated free entry draw
// from a pool-wide shared free list instead of always minting a fresh
// Runner.
func (p *Pool) SetSharedCores(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.haveShared = v
}

// GetSharedCores reports the current SetSharedCores setting.
func (p *Pool) GetSharedCores() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.haveShared
}

// Get returns an idle Runner for core, reusing one from the free list when
// available and minting a fresh one otherwise.
func (p *Pool) Get(core int) *Runner {
	p.mu.Lock()
	if free := p.perCore[core]; len(free) > 0 {
		r := free[len(free)-1]
		p.perCore[core] = free[:len(free)-1]
		p.outstanding++
		p.mu.Unlock()
		return r
	}
	if p.haveShared && len(p.shared) > 0 {
		r := p.shared[len(p.shared)-1]
		p.shared = p.shared[:len(p.shared)-1]
		p.outstanding++
		p.mu.Unlock()
		return r
	}
	p.outstanding++
	p.mu.Unlock()
	return New(core)
}

// Release returns a finished Runner to its core's free list when its core
// is one of the pool's registered cores; otherwise it goes to the shared
// list when shared cores are enabled, and is closed when they are not.
func (p *Pool) Release(r *Runner) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outstanding--
	if p.cores[r.Core()] {
		p.perCore[r.Core()] = append(p.perCore[r.Core()], r)
		return
	}
	if p.haveShared {
		p.shared = append(p.shared, r)
		return
	}
	r.Close()
}

// Stats reports pool occupancy for diagnostics and logging.
type Stats struct {
	Cores       int
	Idle        int
	SharedIdle  int
	Outstanding int
}

// Stats returns a snapshot of the pool's current free-list occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	idle := 0
	for _, free := range p.perCore {
		idle += len(free)
	}
	return Stats{
		Cores:       len(p.cores),
		Idle:        idle,
		SharedIdle:  len(p.shared),
		Outstanding: p.outstanding,
	}
}

// Close closes every idle runner currently held in the pool's free lists.
// Outstanding runners must be Released before Close reclaims them.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for core, free := range p.perCore {
		for _, r := range free {
			r.Close()
		}
		delete(p.perCore, core)
	}
	for _, r := range p.shared {
		r.Close()
	}
	p.shared = nil
}

var defaultPool = NewPool()

// Default returns the process-wide runner pool used when a schedule does
// not construct one of its own.
func Default() *Pool { return defaultPool }
