package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/kinship/internal/familyctx"
	"github.com/dukerupert/kinship/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// PINHeader carries a family's edit PIN on mutating requests.
const PINHeader = "X-Family-PIN"

// LoadFamily resolves the {family_id} path value and populates
// FamilyContext. Unknown families get 404. The family counts as unlocked
// when it has no edit PIN or the request carries the right one.
func LoadFamily(families *store.FamilyStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			familyID, err := strconv.ParseInt(r.PathValue("family_id"), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid family id")
				return
			}

			family, err := families.GetByID(familyID)
			if err != nil {
				logger.Error("load family", "family_id", familyID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to get family")
				return
			}
			if family == nil {
				writeError(w, http.StatusNotFound, "family not found")
				return
			}

			unlocked := !family.HasPIN
			if pin := r.Header.Get(PINHeader); family.HasPIN && pin != "" {
				hash, err := families.GetPINHash(familyID)
				if err != nil {
					logger.Error("load family pin", "family_id", familyID, "error", err)
					writeError(w, http.StatusInternalServerError, "failed to get PIN")
					return
				}
				unlocked = hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
			}

			ctx := familyctx.WithFamily(r.Context(), familyctx.FamilyContext{
				FamilyID:  familyID,
				Unlocked:  unlocked,
				RequestID: w.Header().Get(RequestIDHeader),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireFamilyUnlocked rejects requests for a PIN-protected family that did
// not present its PIN.
func RequireFamilyUnlocked(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !familyctx.IsUnlocked(r.Context()) {
			writeError(w, http.StatusForbidden, "family is locked")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
