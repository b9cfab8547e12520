package genealogy

// collectDisconnected emits a root for every person the primary traversal
// did not place, in person order. A person touched by at least one edge
// between known people roots a secondary tree; anyone else becomes a
// standalone node. Each secondary traversal starts from a copy of the
// primary visited set, and the shared rendered set keeps a person from
// being emitted twice.
func (e *engine) collectDisconnected(primary idSet) []*Node {
	var out []*Node
	for _, id := range e.g.IDs() {
		if e.rendered.has(id) {
			continue
		}
		if e.idx.linked.has(id) {
			if n := e.place(id, primary.clone()); n != nil {
				out = append(out, n)
			}
			continue
		}
		e.rendered.add(id)
		out = append(out, &Node{Person: e.g.People[id]})
	}
	return out
}
