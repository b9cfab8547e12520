package store

import (
	"testing"

	"github.com/dukerupert/kinship/internal/database"
)

func setupFamilyTestDB(t *testing.T) (*FamilyStore, *MemberStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewFamilyStore(db), NewMemberStore(db)
}

func TestFamilyCreate(t *testing.T) {
	fs, _ := setupFamilyTestDB(t)

	f, err := fs.Create("Lovelace")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if f.Name != "Lovelace" {
		t.Errorf("name = %q, want %q", f.Name, "Lovelace")
	}
	if f.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if f.HasPIN {
		t.Error("new family should not have a PIN")
	}
}

func TestFamilyGetByIDNotFound(t *testing.T) {
	fs, _ := setupFamilyTestDB(t)

	f, err := fs.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if f != nil {
		t.Error("expected nil for nonexistent family")
	}
}

func TestFamilyListAndIDs(t *testing.T) {
	fs, _ := setupFamilyTestDB(t)

	b, _ := fs.Create("Babbage")
	a, _ := fs.Create("Austen")

	families, err := fs.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(families) != 2 {
		t.Fatalf("len = %d, want 2", len(families))
	}
	if families[0].Name != "Austen" {
		t.Errorf("first = %q, want Austen", families[0].Name)
	}

	ids, err := fs.IDs()
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != b.ID || ids[1] != a.ID {
		t.Errorf("ids = %v, want [%d %d]", ids, b.ID, a.ID)
	}
}

func TestFamilyUpdateDelete(t *testing.T) {
	fs, _ := setupFamilyTestDB(t)

	f, _ := fs.Create("Old")
	updated, err := fs.Update(f.ID, "New")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "New" {
		t.Errorf("name = %q, want %q", updated.Name, "New")
	}

	if err := fs.Delete(f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := fs.GetByID(f.ID)
	if got != nil {
		t.Error("family should be gone after delete")
	}
}

func TestFamilyPIN(t *testing.T) {
	fs, _ := setupFamilyTestDB(t)
	f, _ := fs.Create("Locked")

	hash, err := fs.GetPINHash(f.ID)
	if err != nil {
		t.Fatalf("get pin hash: %v", err)
	}
	if hash != "" {
		t.Errorf("hash = %q, want empty", hash)
	}

	if err := fs.SetPIN(f.ID, "hashed"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	hash, _ = fs.GetPINHash(f.ID)
	if hash != "hashed" {
		t.Errorf("hash = %q, want %q", hash, "hashed")
	}
	got, _ := fs.GetByID(f.ID)
	if !got.HasPIN {
		t.Error("HasPIN should be true after SetPIN")
	}

	if err := fs.ClearPIN(f.ID); err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	hash, _ = fs.GetPINHash(f.ID)
	if hash != "" {
		t.Errorf("hash = %q, want empty after clear", hash)
	}

	if _, err := fs.GetPINHash(999); err == nil {
		t.Error("expected error for missing family")
	}
}
