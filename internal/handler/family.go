package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/kinship/internal/familyctx"
	"github.com/dukerupert/kinship/internal/model"
	"github.com/dukerupert/kinship/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// TreeForgetter drops cached tree state for a deleted family.
type TreeForgetter interface {
	Forget(familyID int64)
}

type FamilyHandler struct {
	store  *store.FamilyStore
	trees  TreeForgetter
	logger *slog.Logger
}

func NewFamilyHandler(s *store.FamilyStore, trees TreeForgetter, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{store: s, trees: trees, logger: logger}
}

type familyRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type pinRequest struct {
	PIN string `json:"pin" validate:"required,pin"`
}

func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	families, err := h.store.List()
	if err != nil {
		h.logger.Error("list families", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list families")
		return
	}
	if families == nil {
		families = []model.Family{}
	}
	writeJSON(w, http.StatusOK, families)
}

func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req familyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	family, err := h.store.Create(strings.TrimSpace(req.Name))
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create family")
		return
	}
	writeJSON(w, http.StatusCreated, family)
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	family, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req familyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	family, err := h.store.Update(familyctx.FamilyID(r.Context()), strings.TrimSpace(req.Name))
	if err != nil {
		h.logger.Error("update family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update family")
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID := familyctx.FamilyID(r.Context())
	if err := h.store.Delete(familyID); err != nil {
		h.logger.Error("delete family", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete family")
		return
	}
	if h.trees != nil {
		h.trees.Forget(familyID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash PIN")
		return
	}

	if err := h.store.SetPIN(familyctx.FamilyID(r.Context()), string(hash)); err != nil {
		h.logger.Error("set pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

func (h *FamilyHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearPIN(familyctx.FamilyID(r.Context())); err != nil {
		h.logger.Error("clear pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin cleared"})
}

func (h *FamilyHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := h.store.GetPINHash(familyctx.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("get pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get PIN")
		return
	}
	if hash == "" {
		writeError(w, http.StatusBadRequest, "no PIN set for this family")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)); err != nil {
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (h *FamilyHandler) load(w http.ResponseWriter, r *http.Request) (*model.Family, bool) {
	family, err := h.store.GetByID(familyctx.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("get family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get family")
		return nil, false
	}
	if family == nil {
		writeError(w, http.StatusNotFound, "family not found")
		return nil, false
	}
	return family, true
}
