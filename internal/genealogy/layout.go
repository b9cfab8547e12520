package genealogy

import "github.com/dukerupert/kinship/internal/model"

// Node is one unit of the rendered tree: a person, optionally merged with
// their spouse into a couple unit, and the units of their children.
type Node struct {
	Person   *model.Person `json:"person"`
	Spouse   *model.Person `json:"spouse,omitempty"`
	Children []*Node       `json:"children,omitempty"`
}

// IsCouple reports whether the node is a couple unit.
func (n *Node) IsCouple() bool {
	return n.Spouse != nil
}

// IDs returns every person id in the subtree, depth first.
func (n *Node) IDs() []string {
	if n == nil {
		return nil
	}
	ids := []string{n.Person.ID}
	if n.Spouse != nil {
		ids = append(ids, n.Spouse.ID)
	}
	for _, c := range n.Children {
		ids = append(ids, c.IDs()...)
	}
	return ids
}

// Tree is a complete layout: the primary tree hanging from the root plus
// every person the primary traversal could not reach.
type Tree struct {
	Empty        bool    `json:"empty"`
	RootPersonID string  `json:"rootPersonId,omitempty"`
	Root         *Node   `json:"root,omitempty"`
	Disconnected []*Node `json:"disconnected,omitempty"`
}

// IDs returns every placed person id, primary tree first.
func (t *Tree) IDs() []string {
	ids := t.Root.IDs()
	for _, n := range t.Disconnected {
		ids = append(ids, n.IDs()...)
	}
	return ids
}

type idSet map[string]struct{}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) add(id string) {
	s[id] = struct{}{}
}

func (s idSet) clone() idSet {
	c := make(idSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// graphIndex is a read-only adjacency view over a FamilyGraph. Only edges
// whose endpoints both exist are indexed.
type graphIndex struct {
	spouse   map[string]string
	children map[string][]string
	linked   idSet
}

func newGraphIndex(g *model.FamilyGraph) graphIndex {
	idx := graphIndex{
		spouse:   make(map[string]string),
		children: make(map[string][]string),
		linked:   make(idSet),
	}
	for _, r := range g.Relationships {
		if _, ok := g.People[r.Person1ID]; !ok {
			continue
		}
		if _, ok := g.People[r.Person2ID]; !ok {
			continue
		}
		idx.linked.add(r.Person1ID)
		idx.linked.add(r.Person2ID)

		switch r.Type {
		case model.RelationSpouse:
			// First spouse edge touching a person is theirs.
			if _, ok := idx.spouse[r.Person1ID]; !ok {
				idx.spouse[r.Person1ID] = r.Person2ID
			}
			if _, ok := idx.spouse[r.Person2ID]; !ok {
				idx.spouse[r.Person2ID] = r.Person1ID
			}
		case model.RelationParentChild:
			idx.children[r.Person1ID] = appendUnique(idx.children[r.Person1ID], r.Person2ID)
		}
	}
	return idx
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// engine holds the traversal state shared by one Layout call. visited sets
// are threaded explicitly; rendered spans the whole call and records every
// person placed anywhere in the output.
type engine struct {
	g        *model.FamilyGraph
	idx      graphIndex
	rendered idSet
}

type unit struct {
	id     string
	spouse string
}

func newEngine(g *model.FamilyGraph) *engine {
	return &engine{
		g:        g,
		idx:      newGraphIndex(g),
		rendered: make(idSet, len(g.People)),
	}
}

func (e *engine) claimable(id string, visited idSet) bool {
	if _, ok := e.g.People[id]; !ok {
		return false
	}
	return !visited.has(id) && !e.rendered.has(id)
}

func (e *engine) claim(id string, visited idSet) {
	visited.add(id)
	e.rendered.add(id)
}

// place lays out the subtree starting at id. It returns nil when id was
// already placed, which is how cyclic data loses its back edge.
func (e *engine) place(id string, visited idSet) *Node {
	if !e.claimable(id, visited) {
		return nil
	}
	e.claim(id, visited)

	u := unit{id: id}
	if s, ok := e.idx.spouse[id]; ok && e.claimable(s, visited) {
		e.claim(s, visited)
		u.spouse = s
	}
	return e.expand(u, visited)
}

// expand emits the node for an already-claimed unit and recurses into its
// children. All children (and the spouses they pair with) are claimed in
// the shared visited set before any descent; each descent then works on
// its own copy.
func (e *engine) expand(u unit, visited idSet) *Node {
	node := &Node{Person: e.g.People[u.id]}

	kids := append([]string(nil), e.idx.children[u.id]...)
	if u.spouse != "" {
		node.Spouse = e.g.People[u.spouse]
		for _, kid := range e.idx.children[u.spouse] {
			kids = appendUnique(kids, kid)
		}
	}

	var paired, solo []unit
	for _, kid := range kids {
		if !e.claimable(kid, visited) {
			continue
		}
		e.claim(kid, visited)

		if s, ok := e.idx.spouse[kid]; ok && e.claimable(s, visited) {
			e.claim(s, visited)
			paired = append(paired, unit{id: kid, spouse: s})
			continue
		}
		solo = append(solo, unit{id: kid})
	}

	for _, child := range append(paired, solo...) {
		node.Children = append(node.Children, e.expand(child, visited.clone()))
	}
	return node
}

// Layout lays out g from its root and collects every person the primary
// traversal did not reach. An empty graph yields a Tree with Empty set.
func Layout(g *model.FamilyGraph) *Tree {
	if g.Len() == 0 {
		return &Tree{Empty: true}
	}

	root := g.RootPersonID
	if _, ok := g.People[root]; !ok {
		root = SelectRoot(g.People, g.IDs())
	}

	e := newEngine(g)
	visited := make(idSet)

	t := &Tree{
		RootPersonID: root,
		Root:         e.place(root, visited),
	}
	t.Disconnected = e.collectDisconnected(visited)
	return t
}
