package genealogy

import "github.com/dukerupert/kinship/internal/model"

// Reconcile returns a provisional graph with the just-created record
// merged into g, ahead of the authoritative refresh that will replace it.
// g itself is left untouched. Edges to people not already in g are
// skipped, and the root is re-decided with the same rule as SelectRoot.
//
// The second result is false when the record has no id or its id is
// already present; g is returned unchanged in that case.
func (b *Builder) Reconcile(g *model.FamilyGraph, created model.RawRecord) (*model.FamilyGraph, bool) {
	if g == nil {
		g = model.NewFamilyGraph()
	}
	p, links, ok := b.normalizeOne(created)
	if !ok {
		b.logger.Debug("reconcile: record without id")
		return g, false
	}
	if _, exists := g.Person(p.ID); exists {
		b.logger.Debug("reconcile: person already present", "id", p.ID)
		return g, false
	}

	next := g.Clone()
	next.People[p.ID] = p
	next.Order = append(next.Order, p.ID)

	edges := newEdgeList(next.Relationships)
	if dangling := edges.link(next.People, p.ID, links); dangling > 0 {
		b.logger.Debug("reconcile: skipped unknown references", "id", p.ID, "count", dangling)
	}
	next.Relationships = edges.rels

	current, _ := next.Person(next.RootPersonID)
	if PreferRoot(current, p) {
		next.RootPersonID = p.ID
	}

	next.Version = g.Version + 1
	next.Provisional = true
	return next, true
}
