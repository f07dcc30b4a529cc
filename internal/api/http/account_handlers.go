package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	authmw "github.com/driveprep/driveprep/internal/auth/middleware"
	"golang.org/x/crypto/bcrypt"
)

// GET /me — the authenticated account.
func MeHandler(db *sql.DB) http.HandlerFunc {
	type out struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Guest    bool   `json:"guest"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		var username string
		err := db.QueryRowContext(r.Context(), `SELECT username FROM users WHERE id=$1`, userID).Scan(&username)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out{ID: userID, Username: username, Guest: strings.HasPrefix(userID, "guest|")})
	}
}

// POST /me/password — change the account password. Guest accounts have no
// password and cannot set one here; they should register instead.
func ChangePasswordHandler(db *sql.DB) http.HandlerFunc {
	type req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		if strings.HasPrefix(userID, "guest|") {
			http.Error(w, "guest accounts have no password", http.StatusConflict)
			return
		}

		var in req
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if in.NewPassword == "" {
			http.Error(w, "new password required", http.StatusBadRequest)
			return
		}

		var storedHash string
		err := db.QueryRowContext(r.Context(), `SELECT password_hash FROM users WHERE id=$1`, userID).Scan(&storedHash)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(in.OldPassword)) != nil {
			http.Error(w, "incorrect old password", http.StatusForbidden)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), 12)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err := db.ExecContext(r.Context(), `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, userID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
