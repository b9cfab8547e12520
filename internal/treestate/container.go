// Package treestate owns the current family tree of every loaded family.
//
// All state changes go through a Container, one at a time. A change never
// edits a graph in place: it produces a new Snapshot with a higher version,
// and subscribers compare versions rather than contents.
package treestate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/dukerupert/kinship/internal/genealogy"
	"github.com/dukerupert/kinship/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshDelay = 500 * time.Millisecond
	refreshTimeout      = 30 * time.Second
	maxRetryDelay       = time.Minute
	warmConcurrency     = 4
)

// ErrForgotten is returned by a refresh whose family was forgotten while it
// ran. Nothing is applied.
var ErrForgotten = errors.New("family tree forgotten")

// Loader fetches the raw member records of one family.
type Loader interface {
	ListRecords(ctx context.Context, familyID int64) ([]model.RawRecord, error)
}

// Recorder receives reconciliation and refresh outcomes.
type Recorder interface {
	Reconciled(applied bool)
	Refreshed(result string)
}

// Snapshot is an immutable view of one family's tree.
type Snapshot struct {
	FamilyID    int64              `json:"family_id"`
	Version     uint64             `json:"version"`
	Provisional bool               `json:"provisional"`
	Graph       *model.FamilyGraph `json:"graph"`
	Tree        *genealogy.Tree    `json:"tree"`
	Stats       genealogy.Stats    `json:"stats"`
}

// Config configures a Container.
type Config struct {
	// RefreshDelay is how long to wait after the last local mutation before
	// running the authoritative refresh. Mutations inside the window share
	// one refresh.
	RefreshDelay time.Duration
	// OnChange is called with every new snapshot, in the order snapshots are
	// applied. It runs with the container locked and must not block or call
	// back into the container.
	OnChange func(*Snapshot)
	Recorder Recorder
}

type entry struct {
	snap *Snapshot
	// seq counts local mutations; a refresh that started before the latest
	// one may predate it and is discarded.
	seq uint64
	// synced is the seq the current snapshot was fetched at.
	synced uint64
	// retries counts failed scheduled refreshes since the last applied one.
	retries int
}

// Container is the single writer of family tree state.
type Container struct {
	loader   Loader
	builder  *genealogy.Builder
	onChange func(*Snapshot)
	recorder Recorder
	logger   *slog.Logger

	mu         sync.Mutex
	families   map[int64]*entry
	debouncers map[int64]func(func())
	delay      time.Duration
	flight     singleflight.Group

	// schedule runs fn later on behalf of familyID, and retry runs fn once
	// after delay. Replaced in tests.
	schedule func(familyID int64, fn func())
	retry    func(familyID int64, delay time.Duration, fn func())
}

// NewContainer creates a Container.
func NewContainer(loader Loader, builder *genealogy.Builder, cfg Config, logger *slog.Logger) *Container {
	if cfg.RefreshDelay <= 0 {
		cfg.RefreshDelay = defaultRefreshDelay
	}
	c := &Container{
		loader:     loader,
		builder:    builder,
		onChange:   cfg.OnChange,
		recorder:   cfg.Recorder,
		logger:     logger,
		families:   make(map[int64]*entry),
		debouncers: make(map[int64]func(func())),
		delay:      cfg.RefreshDelay,
	}
	c.schedule = c.debounced
	c.retry = func(_ int64, delay time.Duration, fn func()) {
		time.AfterFunc(delay, fn)
	}
	return c
}

func (c *Container) entryLocked(familyID int64) *entry {
	e, ok := c.families[familyID]
	if !ok {
		e = &entry{}
		c.families[familyID] = e
	}
	return e
}

// liveLocked reports whether e is still the family's entry.
func (c *Container) liveLocked(familyID int64, e *entry) bool {
	cur, ok := c.families[familyID]
	return ok && cur == e
}

func (c *Container) applyLocked(e *entry, snap *Snapshot) {
	e.snap = snap
	if c.onChange != nil {
		c.onChange(snap)
	}
}

// Current returns the family's snapshot without loading it.
func (c *Container) Current(familyID int64) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.families[familyID]
	if !ok || e.snap == nil {
		return nil, false
	}
	return e.snap, true
}

// Get returns the family's snapshot, loading it on first use.
func (c *Container) Get(ctx context.Context, familyID int64) (*Snapshot, error) {
	if snap, ok := c.Current(familyID); ok {
		return snap, nil
	}
	return c.Refresh(ctx, familyID)
}

// Refresh fetches the family's records and replaces its snapshot with a
// full rebuild. Concurrent refreshes of one family share a single fetch.
func (c *Container) Refresh(ctx context.Context, familyID int64) (*Snapshot, error) {
	return c.refreshShared(ctx, familyID, nil)
}

// refreshShared runs refresh through the family's single flight. The fetch
// runs detached from ctx so a cancelled caller does not fail the callers
// sharing it.
func (c *Container) refreshShared(ctx context.Context, familyID int64, want *entry) (*Snapshot, error) {
	v, err, _ := c.flight.Do(strconv.FormatInt(familyID, 10), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.refresh(ctx, familyID, want)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// refresh rebuilds the family's tree. When want is set, the refresh only
// proceeds while want is still the family's entry; otherwise an entry is
// created for a family seen for the first time.
func (c *Container) refresh(ctx context.Context, familyID int64, want *entry) (*Snapshot, error) {
	c.mu.Lock()
	e := want
	if e == nil {
		e = c.entryLocked(familyID)
	} else if !c.liveLocked(familyID, e) {
		c.mu.Unlock()
		return nil, ErrForgotten
	}
	startSeq := e.seq
	c.mu.Unlock()

	records, err := c.loader.ListRecords(ctx, familyID)
	if err != nil {
		c.record("error")
		return nil, fmt.Errorf("load records for family %d: %w", familyID, err)
	}
	res := c.builder.Build(records)

	c.mu.Lock()
	if !c.liveLocked(familyID, e) {
		c.mu.Unlock()
		c.record("forgotten")
		return nil, ErrForgotten
	}
	stale := e.seq != startSeq
	if stale && e.snap != nil {
		current := e.snap
		c.mu.Unlock()

		c.record("stale")
		c.logger.Debug("discarded stale refresh", "family_id", familyID, "version", current.Version)
		c.scheduleRefresh(familyID, e)
		return current, nil
	}

	var version uint64 = 1
	if e.snap != nil {
		version = e.snap.Version + 1
	}
	res.Graph.Version = version
	snap := &Snapshot{
		FamilyID: familyID,
		Version:  version,
		Graph:    res.Graph,
		Tree:     res.Tree,
		Stats:    res.Stats,
	}
	e.synced = startSeq
	e.retries = 0
	c.applyLocked(e, snap)
	c.mu.Unlock()

	c.record("applied")
	c.logger.Debug("refreshed family tree",
		"family_id", familyID,
		"version", version,
		"people", res.Graph.Len(),
		"disconnected", res.Stats.Disconnected,
	)
	if stale {
		c.scheduleRefresh(familyID, e)
	}
	return snap, nil
}

// MemberCreated merges a just-created member into the family's tree ahead
// of the authoritative refresh, which it schedules. It returns the
// provisional snapshot, or nil when the family is not loaded yet or the
// record could not be merged.
func (c *Container) MemberCreated(familyID int64, record model.RawRecord) *Snapshot {
	c.mu.Lock()
	e := c.entryLocked(familyID)
	e.seq++

	var snap *Snapshot
	if e.snap != nil {
		g, ok := c.builder.Reconcile(e.snap.Graph, record)
		if c.recorder != nil {
			c.recorder.Reconciled(ok)
		}
		if ok {
			tree := genealogy.Layout(g)
			stats := e.snap.Stats
			stats.Disconnected = len(tree.Disconnected)
			snap = &Snapshot{
				FamilyID:    familyID,
				Version:     g.Version,
				Provisional: true,
				Graph:       g,
				Tree:        tree,
				Stats:       stats,
			}
			c.applyLocked(e, snap)
		}
	}
	c.mu.Unlock()

	c.scheduleRefresh(familyID, e)
	return snap
}

// MemberChanged marks the family's tree out of date after an update or
// deletion and schedules a refresh.
func (c *Container) MemberChanged(familyID int64) {
	c.mu.Lock()
	e := c.entryLocked(familyID)
	e.seq++
	c.mu.Unlock()

	c.scheduleRefresh(familyID, e)
}

// Forget drops a family's state, e.g. after the family was deleted.
// Refreshes still pending for it are cancelled or skipped.
func (c *Container) Forget(familyID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.debouncers[familyID]; ok {
		d(func() {})
	}
	delete(c.families, familyID)
	delete(c.debouncers, familyID)
}

// Warm loads the given families in parallel.
func (c *Container) Warm(ctx context.Context, familyIDs []int64) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, id := range familyIDs {
		g.Go(func() error {
			_, err := c.Refresh(ctx, id)
			return err
		})
	}
	return g.Wait()
}

func (c *Container) scheduleRefresh(familyID int64, e *entry) {
	c.schedule(familyID, func() { c.runScheduled(familyID, e) })
}

// runScheduled runs an authoritative refresh for e. While it keeps failing
// and the family's tree is behind its mutations, it is retried with backoff.
func (c *Container) runScheduled(familyID int64, e *entry) {
	_, err := c.refreshShared(context.Background(), familyID, e)
	if err == nil || errors.Is(err, ErrForgotten) {
		return
	}

	c.mu.Lock()
	if !c.liveLocked(familyID, e) || e.snap == nil || e.synced == e.seq {
		c.mu.Unlock()
		c.logger.Error("scheduled refresh failed", "family_id", familyID, "error", err)
		return
	}
	e.retries++
	delay := c.retryDelay(e.retries)
	c.mu.Unlock()

	c.logger.Warn("scheduled refresh failed, retrying",
		"family_id", familyID,
		"retry_in", delay,
		"error", err,
	)
	c.retry(familyID, delay, func() { c.runScheduled(familyID, e) })
}

func (c *Container) retryDelay(attempt int) time.Duration {
	d := c.delay
	for i := 1; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}

func (c *Container) debounced(familyID int64, fn func()) {
	c.mu.Lock()
	d, ok := c.debouncers[familyID]
	if !ok {
		d = debounce.New(c.delay)
		c.debouncers[familyID] = d
	}
	c.mu.Unlock()
	d(fn)
}

func (c *Container) record(result string) {
	if c.recorder != nil {
		c.recorder.Refreshed(result)
	}
}
