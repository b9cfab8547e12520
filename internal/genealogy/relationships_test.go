package genealogy

import (
	"testing"

	"github.com/dukerupert/kinship/internal/model"
	"github.com/google/go-cmp/cmp"
)

func countType(rels []model.Relationship, typ model.RelationType) int {
	n := 0
	for _, r := range rels {
		if r.Type == typ {
			n++
		}
	}
	return n
}

func TestBuildRelationshipsSpouseUnique(t *testing.T) {
	b := newTestBuilder()
	n := b.Normalize([]model.RawRecord{
		member("a", 0, "spouse", "b"),
		member("b", 0, "spouse", map[string]any{"id": "a"}),
		member("a", 0, "spouse", "b"),
	})

	rels, dangling := BuildRelationships(n)
	if dangling != 0 {
		t.Errorf("dangling = %d, want 0", dangling)
	}
	if got := countType(rels, model.RelationSpouse); got != 1 {
		t.Fatalf("spouse edges = %d, want 1", got)
	}
	if rels[0].Person1ID != "a" || rels[0].Person2ID != "b" {
		t.Errorf("spouse edge = %s-%s, want a-b", rels[0].Person1ID, rels[0].Person2ID)
	}
}

func TestBuildRelationshipsParents(t *testing.T) {
	b := newTestBuilder()
	n := b.Normalize([]model.RawRecord{
		member("dad", 0),
		member("mom", 0),
		member("kid", 1, "father", "dad", "mother", "mom"),
		member("odd", 1, "father", "dad", "mother", "dad"),
	})

	rels, _ := BuildRelationships(n)

	type edge struct{ Parent, Child string }
	var got []edge
	for _, r := range rels {
		got = append(got, edge{r.Person1ID, r.Person2ID})
	}
	want := []edge{
		{"dad", "kid"},
		{"mom", "kid"},
		{"dad", "odd"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRelationshipsSkipsDangling(t *testing.T) {
	b := newTestBuilder()
	n := b.Normalize([]model.RawRecord{
		member("a", 0, "spouse", "gone"),
		member("b", 1, "father", "a", "mother", "missing"),
	})

	rels, dangling := BuildRelationships(n)
	if dangling != 2 {
		t.Errorf("dangling = %d, want 2", dangling)
	}
	if len(rels) != 1 || rels[0].Type != model.RelationParentChild {
		t.Errorf("rels = %+v, want single a→b edge", rels)
	}
}

func TestBuildRelationshipsDeterministicIDs(t *testing.T) {
	records := []model.RawRecord{
		member("a", 0, "spouse", "b"),
		member("b", 0),
		member("c", 1, "father", "a", "mother", "b"),
	}

	first, _ := BuildRelationships(newTestBuilder().Normalize(records))
	second, _ := BuildRelationships(newTestBuilder().Normalize(records))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("builds differ (-first +second):\n%s", diff)
	}

	if spouseID("a", "b") != spouseID("b", "a") {
		t.Error("spouse id should not depend on endpoint order")
	}
	if parentChildID("a", "b") == parentChildID("b", "a") {
		t.Error("parent-child id should depend on direction")
	}
}
