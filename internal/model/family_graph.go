package model

import "sort"

// FamilyGraph is the aggregate of one family's people, relationship edges
// and selected traversal root. A graph value is never mutated after it has
// been handed out; every change produces a new FamilyGraph with a higher
// Version.
type FamilyGraph struct {
	People        map[string]*Person `json:"people"`
	Order         []string           `json:"order"`
	Relationships []Relationship     `json:"relationships"`
	RootPersonID  string             `json:"rootPersonId,omitempty"`
	Version       uint64             `json:"version"`
	Provisional   bool               `json:"provisional"`
}

// NewFamilyGraph returns an empty graph.
func NewFamilyGraph() *FamilyGraph {
	return &FamilyGraph{People: make(map[string]*Person)}
}

// Len returns the number of people in the graph.
func (g *FamilyGraph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.People)
}

// Person looks up a person by id.
func (g *FamilyGraph) Person(id string) (*Person, bool) {
	if g == nil {
		return nil, false
	}
	p, ok := g.People[id]
	return p, ok
}

// IDs returns every person id in insertion order. People missing from
// Order (which a well-formed graph never has) are appended sorted so the
// result stays deterministic.
func (g *FamilyGraph) IDs() []string {
	if g == nil {
		return nil
	}
	ids := make([]string, 0, len(g.People))
	seen := make(map[string]struct{}, len(g.People))
	for _, id := range g.Order {
		if _, ok := g.People[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == len(g.People) {
		return ids
	}
	var rest []string
	for id := range g.People {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// Clone returns a copy whose map and slices can be extended without
// affecting g. Person values are shared; they are treated as immutable.
func (g *FamilyGraph) Clone() *FamilyGraph {
	if g == nil {
		return NewFamilyGraph()
	}
	c := &FamilyGraph{
		People:        make(map[string]*Person, len(g.People)+1),
		Order:         append([]string(nil), g.Order...),
		Relationships: append([]Relationship(nil), g.Relationships...),
		RootPersonID:  g.RootPersonID,
		Version:       g.Version,
		Provisional:   g.Provisional,
	}
	for id, p := range g.People {
		c.People[id] = p
	}
	return c
}

// SameContent reports whether both graphs hold the same people, the same
// set of edges and the same root. Version, Provisional and ordering are
// ignored.
func (g *FamilyGraph) SameContent(other *FamilyGraph) bool {
	if g.Len() != other.Len() {
		return false
	}
	if g.Len() == 0 {
		return true
	}
	if g.RootPersonID != other.RootPersonID {
		return false
	}
	for id, p := range g.People {
		q, ok := other.People[id]
		if !ok || *p != *q {
			return false
		}
	}
	if len(g.Relationships) != len(other.Relationships) {
		return false
	}
	edges := make(map[string]Relationship, len(g.Relationships))
	for _, r := range g.Relationships {
		edges[r.ID] = r
	}
	for _, r := range other.Relationships {
		mine, ok := edges[r.ID]
		if !ok || mine.Type != r.Type {
			return false
		}
	}
	return true
}
