package genealogy

import "github.com/dukerupert/kinship/internal/model"

// eldestGeneration marks the explicit top of a family. It is preferred
// over any other generation number, lower ones included.
const eldestGeneration = 0

// PreferRoot reports whether candidate should replace current as the
// traversal root. The first generation-0 person captured is never
// displaced; otherwise a strictly lower generation wins.
func PreferRoot(current, candidate *model.Person) bool {
	if candidate == nil {
		return false
	}
	if current == nil {
		return true
	}
	if current.Generation == eldestGeneration {
		return false
	}
	if candidate.Generation == eldestGeneration {
		return true
	}
	return candidate.Generation < current.Generation
}

// SelectRoot picks the traversal root by walking people in order and
// applying PreferRoot. It returns "" for an empty set.
func SelectRoot(people map[string]*model.Person, order []string) string {
	var root *model.Person
	for _, id := range order {
		p, ok := people[id]
		if !ok {
			continue
		}
		if PreferRoot(root, p) {
			root = p
		}
	}
	if root == nil {
		return ""
	}
	return root.ID
}
