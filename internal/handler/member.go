package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/kinship/internal/familyctx"
	"github.com/dukerupert/kinship/internal/model"
	"github.com/dukerupert/kinship/internal/store"
	"github.com/dukerupert/kinship/internal/treestate"
)

// TreeNotifier is told about member changes so the family's tree follows.
type TreeNotifier interface {
	MemberCreated(familyID int64, record model.RawRecord) *treestate.Snapshot
	MemberChanged(familyID int64)
}

type MemberHandler struct {
	store  *store.MemberStore
	trees  TreeNotifier
	logger *slog.Logger
}

func NewMemberHandler(s *store.MemberStore, trees TreeNotifier, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{store: s, trees: trees, logger: logger}
}

type memberRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Generation  int    `json:"generation" validate:"gte=-100,lte=100"`
	Photo       string `json:"photo" validate:"max=500"`
	FatherID    *int64 `json:"father_id" validate:"omitempty,gt=0"`
	MotherID    *int64 `json:"mother_id" validate:"omitempty,gt=0"`
	SpouseID    *int64 `json:"spouse_id" validate:"omitempty,gt=0"`
}

func (req memberRequest) input() store.MemberInput {
	gender := req.Gender
	if gender == "" {
		gender = string(model.GenderMale)
	}
	return store.MemberInput{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Gender:      gender,
		DateOfBirth: req.DateOfBirth,
		Generation:  req.Generation,
		Photo:       strings.TrimSpace(req.Photo),
		FatherID:    req.FatherID,
		MotherID:    req.MotherID,
		SpouseID:    req.SpouseID,
	}
}

type memberResponse struct {
	Member      *model.Member `json:"member"`
	TreeVersion uint64        `json:"tree_version,omitempty"`
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.ListByFamily(familyctx.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := familyctx.FamilyID(r.Context())

	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg, ok := h.checkReferences(w, familyID, 0, req); !ok {
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
		}
		return
	}

	member, err := h.store.Create(familyID, req.input())
	if err != nil {
		h.logger.Error("create member", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create member")
		return
	}

	resp := memberResponse{Member: member}
	if snap := h.trees.MemberCreated(familyID, member.Record()); snap != nil {
		resp.TreeVersion = snap.Version
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	familyID := familyctx.FamilyID(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(familyID, id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg, ok := h.checkReferences(w, familyID, id, req); !ok {
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
		}
		return
	}

	member, err := h.store.Update(familyID, id, req.input())
	if err != nil {
		h.logger.Error("update member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update member")
		return
	}
	h.trees.MemberChanged(familyID)
	writeJSON(w, http.StatusOK, memberResponse{Member: member})
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID := familyctx.FamilyID(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(familyID, id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	if err := h.store.Delete(familyID, id); err != nil {
		h.logger.Error("delete member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete member")
		return
	}
	h.trees.MemberChanged(familyID)
	w.WriteHeader(http.StatusNoContent)
}

// checkReferences verifies that father, mother and spouse name other members
// of the same family. On failure it returns a client message, or "" after
// it has already written a server error.
func (h *MemberHandler) checkReferences(w http.ResponseWriter, familyID, selfID int64, req memberRequest) (string, bool) {
	refs := []struct {
		name string
		id   *int64
	}{
		{"father_id", req.FatherID},
		{"mother_id", req.MotherID},
		{"spouse_id", req.SpouseID},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		if *ref.id == selfID {
			return fmt.Sprintf("%s cannot refer to the member itself", ref.name), false
		}
		ok, err := h.store.Exists(familyID, *ref.id)
		if err != nil {
			h.logger.Error("check member reference", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to check references")
			return "", false
		}
		if !ok {
			return fmt.Sprintf("%s does not refer to a member of this family", ref.name), false
		}
	}
	return "", true
}
