package model

import (
	"strconv"
	"time"
)

type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	HasPIN    bool      `json:"has_pin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a stored member record. Father, mother and spouse are plain ids
// and may point at members that no longer exist.
type Member struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Gender      string    `json:"gender"`
	DateOfBirth string    `json:"date_of_birth"`
	Generation  int       `json:"generation"`
	Photo       string    `json:"photo"`
	FatherID    *int64    `json:"father_id"`
	MotherID    *int64    `json:"mother_id"`
	SpouseID    *int64    `json:"spouse_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Record converts the member into the raw shape consumed by the tree
// builder. Relationship references are emitted as bare ids.
func (m Member) Record() RawRecord {
	r := RawRecord{
		"id":         strconv.FormatInt(m.ID, 10),
		"firstName":  m.FirstName,
		"lastName":   m.LastName,
		"gender":     m.Gender,
		"generation": m.Generation,
	}
	if m.DateOfBirth != "" {
		r["dateOfBirth"] = m.DateOfBirth
	}
	if m.Photo != "" {
		r["photo"] = m.Photo
	}
	if m.FatherID != nil {
		r["father"] = strconv.FormatInt(*m.FatherID, 10)
	}
	if m.MotherID != nil {
		r["mother"] = strconv.FormatInt(*m.MotherID, 10)
	}
	if m.SpouseID != nil {
		r["spouse"] = strconv.FormatInt(*m.SpouseID, 10)
	}
	return r
}
