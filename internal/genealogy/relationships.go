package genealogy

import (
	"github.com/dukerupert/kinship/internal/model"
	"github.com/google/uuid"
)

// relationshipNS seeds the name-based ids of relationship edges. Ids are a
// pure function of type and endpoints, so two builds of the same data, or
// a build and a reconciliation, agree on them.
var relationshipNS = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kinship:relationship"))

func parentChildID(parent, child string) string {
	return uuid.NewSHA1(relationshipNS, []byte(string(model.RelationParentChild)+":"+parent+">"+child)).String()
}

func spouseID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return uuid.NewSHA1(relationshipNS, []byte(string(model.RelationSpouse)+":"+a+"|"+b)).String()
}

// edgeList accumulates relationships, refusing a second spouse edge for the
// same unordered pair and a second parent-child edge for the same parent
// and child.
type edgeList struct {
	rels []model.Relationship
	seen map[string]struct{}
}

func newEdgeList(existing []model.Relationship) *edgeList {
	l := &edgeList{
		rels: existing,
		seen: make(map[string]struct{}, len(existing)),
	}
	for _, r := range existing {
		l.seen[r.ID] = struct{}{}
	}
	return l
}

func (l *edgeList) add(r model.Relationship) bool {
	if _, dup := l.seen[r.ID]; dup {
		return false
	}
	l.seen[r.ID] = struct{}{}
	l.rels = append(l.rels, r)
	return true
}

func (l *edgeList) addParent(parent, child string) bool {
	return l.add(model.Relationship{
		ID:        parentChildID(parent, child),
		Type:      model.RelationParentChild,
		Person1ID: parent,
		Person2ID: child,
	})
}

func (l *edgeList) addSpouse(a, b string) bool {
	return l.add(model.Relationship{
		ID:        spouseID(a, b),
		Type:      model.RelationSpouse,
		Person1ID: a,
		Person2ID: b,
	})
}

// link adds the edges described by one person's references, skipping any
// reference to a person not in people. It returns how many were skipped.
func (l *edgeList) link(people map[string]*model.Person, id string, links Links) (dangling int) {
	known := func(ref string) bool {
		if ref == "" {
			return false
		}
		if _, ok := people[ref]; !ok {
			dangling++
			return false
		}
		return true
	}

	if known(links.Father) {
		l.addParent(links.Father, id)
	}
	if known(links.Mother) {
		l.addParent(links.Mother, id)
	}
	if known(links.Spouse) {
		l.addSpouse(id, links.Spouse)
	}
	return dangling
}

// BuildRelationships derives parent-child and spouse edges from each
// person's references, in person order. It performs no cycle detection;
// cycles are neutralized during layout.
func BuildRelationships(n *Normalized) ([]model.Relationship, int) {
	l := newEdgeList(nil)
	dangling := 0
	for _, id := range n.Order {
		dangling += l.link(n.People, id, n.Links[id])
	}
	return l.rels, dangling
}
