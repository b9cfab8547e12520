package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/kinship/internal/model"
)

// MemberInput holds the writable fields of a member record.
type MemberInput struct {
	FirstName   string
	LastName    string
	Gender      string
	DateOfBirth string
	Generation  int
	Photo       string
	FatherID    *int64
	MotherID    *int64
	SpouseID    *int64
}

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, family_id, first_name, last_name, gender, date_of_birth, generation, photo, father_id, mother_id, spouse_id, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	var father, mother, spouse sql.NullInt64
	err := scanner.Scan(
		&m.ID, &m.FamilyID, &m.FirstName, &m.LastName, &m.Gender, &m.DateOfBirth,
		&m.Generation, &m.Photo, &father, &mother, &spouse, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.FatherID = nullableID(father)
	m.MotherID = nullableID(mother)
	m.SpouseID = nullableID(spouse)
	return &m, nil
}

func nullableID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	id := n.Int64
	return &id
}

func idArg(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (s *MemberStore) Create(familyID int64, in MemberInput) (*model.Member, error) {
	result, err := s.db.Exec(
		`INSERT INTO members (family_id, first_name, last_name, gender, date_of_birth, generation, photo, father_id, mother_id, spouse_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, in.FirstName, in.LastName, in.Gender, in.DateOfBirth, in.Generation, in.Photo,
		idArg(in.FatherID), idArg(in.MotherID), idArg(in.SpouseID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(familyID, id)
}

func (s *MemberStore) ListByFamily(familyID int64) ([]model.Member, error) {
	return s.list(context.Background(), familyID)
}

// ListRecords returns the family's members in the raw shape the tree
// builder consumes.
func (s *MemberStore) ListRecords(ctx context.Context, familyID int64) ([]model.RawRecord, error) {
	members, err := s.list(ctx, familyID)
	if err != nil {
		return nil, err
	}
	records := make([]model.RawRecord, 0, len(members))
	for _, m := range members {
		records = append(records, m.Record())
	}
	return records, nil
}

func (s *MemberStore) list(ctx context.Context, familyID int64) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memberCols+` FROM members WHERE family_id = ? ORDER BY id`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) GetByID(familyID, id int64) (*model.Member, error) {
	m, err := scanMember(s.db.QueryRow(
		`SELECT `+memberCols+` FROM members WHERE family_id = ? AND id = ?`,
		familyID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}
	return m, nil
}

func (s *MemberStore) Update(familyID, id int64, in MemberInput) (*model.Member, error) {
	_, err := s.db.Exec(
		`UPDATE members SET first_name = ?, last_name = ?, gender = ?, date_of_birth = ?, generation = ?, photo = ?,
		 father_id = ?, mother_id = ?, spouse_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE family_id = ? AND id = ?`,
		in.FirstName, in.LastName, in.Gender, in.DateOfBirth, in.Generation, in.Photo,
		idArg(in.FatherID), idArg(in.MotherID), idArg(in.SpouseID),
		familyID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(familyID, id)
}

func (s *MemberStore) Delete(familyID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM members WHERE family_id = ? AND id = ?`, familyID, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

// Exists reports whether id is a member of the family.
func (s *MemberStore) Exists(familyID, id int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM members WHERE family_id = ? AND id = ?`,
		familyID, id,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check member exists: %w", err)
	}
	return count > 0, nil
}
