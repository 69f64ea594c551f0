// internal/engine/dynamic/pool.go
package dynamic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/identity"
	"github.com/law-makers/crawlflow/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Launcher starts the driver behind one pool slot.
type Launcher interface {
	Launch(ctx context.Context, id int) (Driver, error)
}

// Driver is one long-lived browser session.
type Driver interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is an open tab of a driver.
type Page interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
	Close() error
}

// Session is a pool slot. Its index never changes; its page is opened on
// checkout and closed on release.
type Session struct {
	id     int
	driver Driver
	busy   atomic.Bool

	mu   sync.Mutex
	page Page
}

// ID returns the slot index of the session.
func (s *Session) ID() int {
	return s.id
}

// Page returns the currently open page, or nil.
func (s *Session) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Run executes actions on the open page of the session.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	p := s.Page()
	if p == nil {
		return engine.NewEngineError(engine.ErrCodePool, "session has no open page", nil).
			WithDetail("session", s.id)
	}
	return p.Run(ctx, actions...)
}

func (s *Session) setPage(p Page) {
	s.mu.Lock()
	s.page = p
	s.mu.Unlock()
}

// closePage closes the open page if any. Safe to call repeatedly.
func (s *Session) closePage() error {
	s.mu.Lock()
	p := s.page
	s.page = nil
	s.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Close()
}

// PoolOptions configures the driver pool
type PoolOptions struct {
	Size        int
	Identities  *identity.Rotator
	MaxScan     int           // Candidates inspected before backing off, default 2*Size
	ScanBackoff time.Duration // Pause after a fruitless scan, default 25ms
}

// Pool owns a fixed set of driver sessions. At most Size sessions are checked
// out at once; candidates are picked round-robin.
type Pool struct {
	sessions    []*Session
	sem         *semaphore.Weighted
	counter     atomic.Uint64
	identities  *identity.Rotator
	maxScan     int
	scanBackoff time.Duration
	inUse       atomic.Int64
	stopped     atomic.Bool
	stopOnce    sync.Once
	stopErr     error
}

// NewPool launches opts.Size sessions concurrently. If any launch fails the
// sessions already started are stopped and no pool is returned.
func NewPool(ctx context.Context, launcher Launcher, opts PoolOptions) (*Pool, error) {
	if opts.Size <= 0 {
		return nil, engine.NewEngineError(engine.ErrCodeValidation, "pool size must be > 0", nil)
	}
	if launcher == nil {
		return nil, engine.NewEngineError(engine.ErrCodeValidation, "launcher is required", nil)
	}
	if opts.MaxScan <= 0 {
		opts.MaxScan = 2 * opts.Size
	}
	if opts.ScanBackoff <= 0 {
		opts.ScanBackoff = 25 * time.Millisecond
	}

	log.Debug().Int("size", opts.Size).Msg("Creating driver pool")

	p := &Pool{
		sessions:    make([]*Session, opts.Size),
		sem:         semaphore.NewWeighted(int64(opts.Size)),
		identities:  opts.Identities,
		maxScan:     opts.MaxScan,
		scanBackoff: opts.ScanBackoff,
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range p.sessions {
		g.Go(func() error {
			d, err := launcher.Launch(gctx, i)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			p.sessions[i] = &Session{id: i, driver: d}
			log.Debug().Int("session_id", i).Msg("Driver session launched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = p.Stop()
		return nil, engine.NewEngineError(engine.ErrCodePoolLaunch, "failed to launch driver sessions", err)
	}

	log.Info().Int("pool_size", opts.Size).Msg("Driver pool ready")
	return p, nil
}

// Acquire blocks until a checkout slot is free, picks an idle session, opens
// a page on it and applies the next identity. Every successful Acquire must
// be paired with exactly one Release.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	if p.stopped.Load() {
		return nil, errStopped()
	}
	start := time.Now()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, engine.NewEngineError(engine.ErrCodePool, "waiting for a driver session", err)
	}
	if p.stopped.Load() {
		p.sem.Release(1)
		return nil, errStopped()
	}

	s, err := p.claim(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	page, err := s.driver.NewPage(ctx)
	if err != nil {
		p.free(s)
		return nil, engine.NewEngineError(engine.ErrCodePool, "failed to open page", err).
			WithDetail("session", s.id)
	}

	if ua := p.identities.Next(); ua != "" {
		if err := page.Run(ctx, SetIdentity(ua)); err != nil {
			_ = page.Close()
			p.free(s)
			return nil, engine.NewEngineError(engine.ErrCodePool, "failed to set identity", err).
				WithDetail("session", s.id)
		}
	}
	s.setPage(page)

	metrics.SetPoolInUse(int(p.inUse.Add(1)))
	metrics.ObservePoolAcquire(time.Since(start))
	log.Debug().Int("session_id", s.id).Dur("wait", time.Since(start)).Msg("Driver session acquired")
	return s, nil
}

// Release closes the session's page and returns its permit. Releasing a
// session that is not checked out is a no-op.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}
	if err := s.closePage(); err != nil {
		log.Debug().Err(err).Int("session_id", s.id).Msg("Closing page failed")
	}
	if !s.busy.CompareAndSwap(true, false) {
		log.Warn().Int("session_id", s.id).Msg("Release of a session that is not checked out")
		return
	}
	metrics.SetPoolInUse(int(p.inUse.Add(-1)))
	p.sem.Release(1)
	log.Debug().Int("session_id", s.id).Msg("Driver session released")
}

// Stop closes every page and every driver. It tolerates a partially
// launched pool and only runs once.
func (p *Pool) Stop() error {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		var errs []error
		for _, s := range p.sessions {
			if s == nil {
				continue
			}
			if err := s.closePage(); err != nil {
				errs = append(errs, err)
			}
			if s.driver != nil {
				if err := s.driver.Close(); err != nil {
					errs = append(errs, fmt.Errorf("session %d: %w", s.id, err))
				}
			}
		}
		p.stopErr = errors.Join(errs...)
		log.Info().Msg("Driver pool stopped")
	})
	return p.stopErr
}

// Size returns the number of sessions.
func (p *Pool) Size() int {
	return len(p.sessions)
}

// InUse returns the number of sessions currently checked out.
func (p *Pool) InUse() int {
	return int(p.inUse.Load())
}

// Available returns the number of sessions that can be checked out now.
func (p *Pool) Available() int {
	return p.Size() - p.InUse()
}

// claim scans at most maxScan candidates, then backs off and rescans.
func (p *Pool) claim(ctx context.Context) (*Session, error) {
	for {
		for i := 0; i < p.maxScan; i++ {
			s := p.sessions[p.nextIndex()]
			if s.busy.CompareAndSwap(false, true) {
				return s, nil
			}
		}

		log.Debug().Int("scanned", p.maxScan).Msg("All scanned sessions busy, backing off")
		timer := time.NewTimer(p.scanBackoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, engine.NewEngineError(engine.ErrCodePool, "no idle driver session", ctx.Err())
		}
		if p.stopped.Load() {
			return nil, errStopped()
		}
	}
}

// nextIndex advances the shared counter with a compare-and-swap loop and
// returns the index it replaced.
func (p *Pool) nextIndex() int {
	n := uint64(len(p.sessions))
	for {
		cur := p.counter.Load()
		if p.counter.CompareAndSwap(cur, (cur+1)%n) {
			return int(cur % n)
		}
	}
}

func (p *Pool) free(s *Session) {
	s.busy.Store(false)
	p.sem.Release(1)
}

func errStopped() error {
	return engine.NewEngineError(engine.ErrCodePool, "pool is stopped", nil)
}
