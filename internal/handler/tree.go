package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/kinship/internal/familyctx"
	"github.com/dukerupert/kinship/internal/treestate"
)

// TreeSource serves family tree snapshots.
type TreeSource interface {
	Get(ctx context.Context, familyID int64) (*treestate.Snapshot, error)
	Refresh(ctx context.Context, familyID int64) (*treestate.Snapshot, error)
}

type TreeHandler struct {
	trees  TreeSource
	logger *slog.Logger
}

func NewTreeHandler(trees TreeSource, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{trees: trees, logger: logger}
}

func (h *TreeHandler) Get(w http.ResponseWriter, r *http.Request) {
	familyID := familyctx.FamilyID(r.Context())
	snap, err := h.trees.Get(r.Context(), familyID)
	if err != nil {
		h.logger.Error("get tree", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build tree")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Refresh forces an authoritative rebuild from stored members.
func (h *TreeHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	familyID := familyctx.FamilyID(r.Context())
	snap, err := h.trees.Refresh(r.Context(), familyID)
	if err != nil {
		h.logger.Error("refresh tree", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to refresh tree")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
