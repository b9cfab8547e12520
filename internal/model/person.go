package model

// Gender drives avatar selection only; lineage logic never branches on it.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Person is a canonical, deduplicated member of a family tree.
type Person struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Gender      Gender `json:"gender"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Generation  int    `json:"generation"`
	PhotoRef    string `json:"photoRef,omitempty"`
	AvatarGlyph string `json:"avatarGlyph"`
}

// RelationType is the kind of edge between two people.
type RelationType string

const (
	RelationParentChild RelationType = "parent-child"
	RelationSpouse      RelationType = "spouse"
)

// Relationship is a typed edge. For parent-child edges Person1ID is the
// parent and Person2ID the child; spouse edges are unordered.
type Relationship struct {
	ID        string       `json:"id"`
	Type      RelationType `json:"type"`
	Person1ID string       `json:"person1Id"`
	Person2ID string       `json:"person2Id"`
}

// RawRecord is a member record as fetched from the persistence layer.
// Only an "id" key is required; every other key is optional and may come
// in several shapes.
type RawRecord map[string]any
