package genealogy

import (
	"testing"
	"time"

	"github.com/dukerupert/kinship/internal/model"
	"github.com/google/go-cmp/cmp"
)

func TestNormalizeDedupFirstWins(t *testing.T) {
	b := newTestBuilder()
	n := b.Normalize([]model.RawRecord{
		member("a", 0, "firstName", "Ada", "lastName", "Lovelace"),
		member("a", 3, "firstName", "Impostor"),
	})

	if len(n.People) != 1 {
		t.Fatalf("people = %d, want 1", len(n.People))
	}
	p := n.People["a"]
	if p.FirstName != "Ada" || p.Generation != 0 {
		t.Errorf("person = %+v, want first occurrence", p)
	}
	if n.Stats.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", n.Stats.Duplicates)
	}
	if diff := cmp.Diff([]string{"a"}, n.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeDropsRecordsWithoutID(t *testing.T) {
	b := newTestBuilder()
	n := b.Normalize([]model.RawRecord{
		{"firstName": "No ID"},
		{"id": "", "firstName": "Empty"},
		{"id": "   "},
		nil,
		member("ok", 0),
	})

	if len(n.People) != 1 {
		t.Fatalf("people = %d, want 1", len(n.People))
	}
	if n.Stats.Dropped != 4 {
		t.Errorf("dropped = %d, want 4", n.Stats.Dropped)
	}
	if n.Stats.Records != 5 {
		t.Errorf("records = %d, want 5", n.Stats.Records)
	}
}

func TestNormalizeReferenceShapes(t *testing.T) {
	b := newTestBuilder()
	n := b.Normalize([]model.RawRecord{
		{
			"id":     float64(7),
			"father": map[string]any{"id": float64(1), "firstName": "Dad"},
			"mother": "2",
			"spouse": model.RawRecord{"id": "3"},
		},
		{"id": 8, "father": map[string]any{"name": "no id"}},
	})

	want := map[string]Links{
		"7": {Father: "1", Mother: "2", Spouse: "3"},
		"8": {},
	}
	if diff := cmp.Diff(want, n.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestScalarIDNumbers(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{float64(42), "42"},
		{float64(-3), "-3"},
		{9.5, "9.5"},
		{float64(1 << 62), "4611686018427387904"},
		{1e19, "10000000000000000000"},
		{2e19, "20000000000000000000"},
		{-1e19, "-10000000000000000000"},
		{float32(12), "12"},
		{uint64(18446744073709551615), "18446744073709551615"},
	}
	for _, tt := range tests {
		if got := scalarID(tt.in); got != tt.want {
			t.Errorf("scalarID(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeKeepsHugeNumericIDsDistinct(t *testing.T) {
	n := newTestBuilder().Normalize([]model.RawRecord{
		{"id": 1e19},
		{"id": 2e19},
	})
	if n.Stats.Duplicates != 0 {
		t.Errorf("duplicates = %d, want 0", n.Stats.Duplicates)
	}
	if diff := cmp.Diff([]string{"10000000000000000000", "20000000000000000000"}, n.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeGender(t *testing.T) {
	tests := []struct {
		in   any
		want model.Gender
	}{
		{"male", model.GenderMale},
		{"Female", model.GenderFemale},
		{"F", model.GenderFemale},
		{"other", model.GenderOther},
		{"unknown", model.GenderMale},
		{nil, model.GenderMale},
	}

	b := newTestBuilder()
	for _, tt := range tests {
		rec := member("x", 0)
		if tt.in != nil {
			rec["gender"] = tt.in
		}
		p, _, ok := b.normalizeOne(rec)
		if !ok {
			t.Fatalf("gender %v: record dropped", tt.in)
		}
		if p.Gender != tt.want {
			t.Errorf("gender %v = %q, want %q", tt.in, p.Gender, tt.want)
		}
		if p.AvatarGlyph != avatarGlyphs[tt.want] {
			t.Errorf("gender %v glyph = %q, want %q", tt.in, p.AvatarGlyph, avatarGlyphs[tt.want])
		}
	}
}

func TestNormalizeDateOfBirth(t *testing.T) {
	born := time.Date(1950, 3, 4, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"iso date", "1950-03-04", "1950-03-04"},
		{"rfc3339", "1950-03-04T10:30:00Z", "1950-03-04"},
		{"us date", "03/04/1950", "1950-03-04"},
		{"time value", born, "1950-03-04"},
		{"time pointer", &born, "1950-03-04"},
		{"parts", map[string]any{"year": 1950, "month": "3", "day": float64(4)}, "1950-03-04"},
		{"impossible parts", map[string]any{"year": 1950, "month": 2, "day": 30}, ""},
		{"garbage", "sometime in spring", ""},
		{"absent", nil, ""},
		{"wrong type", true, ""},
	}

	b := newTestBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := member("x", 0)
			if tt.in != nil {
				rec["dateOfBirth"] = tt.in
			}
			p, _, ok := b.normalizeOne(rec)
			if !ok {
				t.Fatal("record dropped")
			}
			if p.DateOfBirth != tt.want {
				t.Errorf("dateOfBirth = %q, want %q", p.DateOfBirth, tt.want)
			}
		})
	}
}

func TestNormalizeLenientGeneration(t *testing.T) {
	b := newTestBuilder()
	n := b.Normalize([]model.RawRecord{
		{"id": "a", "generation": "2"},
		{"id": "b", "generation": float64(1)},
		{"id": "c", "generation": "not a number", "firstName": "Kept"},
	})

	if got := n.People["a"].Generation; got != 2 {
		t.Errorf("a generation = %d, want 2", got)
	}
	if got := n.People["b"].Generation; got != 1 {
		t.Errorf("b generation = %d, want 1", got)
	}
	c, ok := n.People["c"]
	if !ok {
		t.Fatal("record with bad generation should be kept")
	}
	if c.FirstName != "Kept" || c.Generation != 0 {
		t.Errorf("c = %+v, want name kept and generation 0", c)
	}
}

type prefixResolver string

func (p prefixResolver) Resolve(ref string) string {
	if ref == "" {
		return ""
	}
	return string(p) + ref
}

func TestNormalizeResolvesPhotos(t *testing.T) {
	b := NewBuilder(prefixResolver("https://cdn.test/"), nil, nil)
	n := b.Normalize([]model.RawRecord{
		member("a", 0, "photo", "a.jpg"),
		member("b", 0, "photoRef", "b.jpg"),
		member("c", 0),
	})

	want := map[string]string{
		"a": "https://cdn.test/a.jpg",
		"b": "https://cdn.test/b.jpg",
		"c": "",
	}
	for id, photo := range want {
		if got := n.People[id].PhotoRef; got != photo {
			t.Errorf("%s photo = %q, want %q", id, got, photo)
		}
	}
}
