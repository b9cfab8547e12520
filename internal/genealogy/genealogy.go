// Package genealogy turns raw member records into a family graph and lays
// that graph out as a tree of couple units.
//
// Every stage is a pure computation over values supplied by the caller.
// Malformed input never fails a build: a record without an id is dropped,
// a reference to an unknown person loses its edge, a cycle loses its back
// edge, and every remaining person is placed exactly once, either in the
// primary tree or in the disconnected section.
package genealogy

import (
	"log/slog"
	"time"

	"github.com/dukerupert/kinship/internal/model"
)

// PhotoResolver turns a raw photo reference into a resolvable locator, or
// "" when the reference is unusable. The result is stored as is.
type PhotoResolver interface {
	Resolve(ref string) string
}

// Observer receives the diagnostics of each full build.
type Observer interface {
	ObserveBuild(stats Stats, elapsed time.Duration)
}

// Stats counts what a build had to discard or set aside.
type Stats struct {
	Records      int `json:"records"`
	Dropped      int `json:"dropped"`
	Duplicates   int `json:"duplicates"`
	Dangling     int `json:"dangling"`
	Disconnected int `json:"disconnected"`
}

// Links holds the relationship references of one record, already reduced
// to bare ids. Empty means absent.
type Links struct {
	Father string
	Mother string
	Spouse string
}

// Builder runs the record → graph → layout pipeline.
type Builder struct {
	photos   PhotoResolver
	observer Observer
	logger   *slog.Logger
}

// NewBuilder creates a Builder. photos and observer may be nil.
func NewBuilder(photos PhotoResolver, observer Observer, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		photos:   photos,
		observer: observer,
		logger:   logger,
	}
}

// Result is the output of a full build.
type Result struct {
	Graph *model.FamilyGraph `json:"graph"`
	Tree  *Tree              `json:"tree"`
	Stats Stats              `json:"stats"`
}

// Build normalizes records, derives relationship edges, selects the root
// and lays the graph out, including disconnected people.
func (b *Builder) Build(records []model.RawRecord) *Result {
	start := time.Now()

	n := b.Normalize(records)
	rels, dangling := BuildRelationships(n)
	n.Stats.Dangling = dangling

	g := &model.FamilyGraph{
		People:        n.People,
		Order:         n.Order,
		Relationships: rels,
		RootPersonID:  SelectRoot(n.People, n.Order),
	}

	tree := Layout(g)
	n.Stats.Disconnected = len(tree.Disconnected)

	if n.Stats.Dangling > 0 {
		b.logger.Debug("skipped dangling references", "count", n.Stats.Dangling)
	}
	if b.observer != nil {
		b.observer.ObserveBuild(n.Stats, time.Since(start))
	}

	return &Result{Graph: g, Tree: tree, Stats: n.Stats}
}
