package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	authmw "github.com/driveprep/driveprep/internal/auth/middleware"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type tokenOut struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
}

// POST /auth/register  {"username": "...", "password": "..."}
func RegisterHandler(a *authmw.AuthService, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			http.Error(w, "username and password required", http.StatusBadRequest)
			return
		}

		var exists int
		err := db.QueryRowContext(r.Context(), `SELECT 1 FROM users WHERE username=$1`, req.Username).Scan(&exists)
		if err == nil {
			http.Error(w, "username already exists", http.StatusBadRequest)
			return
		}
		if !errors.Is(err, sql.ErrNoRows) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		phash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		id := uuid.NewString()
		_, err = db.ExecContext(r.Context(),
			`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,'student',$4)`,
			id, req.Username, string(phash), time.Now().Unix())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		tok, err := a.IssueJWT(id, req.Username)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(tokenOut{AccessToken: tok, UserID: id, Username: req.Username})
	}
}

// POST /auth/login  {"username": "...", "password": "..."}
func LoginHandler(a *authmw.AuthService, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		var id, phash string
		err := db.QueryRowContext(r.Context(),
			`SELECT id, password_hash FROM users WHERE username=$1`, strings.TrimSpace(req.Username)).Scan(&id, &phash)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(phash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		tok, err := a.IssueJWT(id, req.Username)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(tokenOut{AccessToken: tok, UserID: id, Username: req.Username})
	}
}

// POST /auth/guest — issues an anonymous student identity so the quiz flow
// works without registration. The guest ID is persisted so later sessions
// keep one history.
func GuestLoginHandler(a *authmw.AuthService, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Reuse an existing guest from cookie when present.
		if c, err := r.Cookie("dp_guest_id"); err == nil && strings.HasPrefix(c.Value, "guest|") {
			var username string
			err := db.QueryRowContext(r.Context(), `SELECT username FROM users WHERE id=$1`, c.Value).Scan(&username)
			if err == nil {
				tok, _ := a.IssueJWT(c.Value, username)
				setGuestCookie(w, c.Value)
				_ = json.NewEncoder(w).Encode(tokenOut{AccessToken: tok, UserID: c.Value, Username: username})
				return
			}
		}

		sfx := strconv.FormatInt(time.Now().UnixNano(), 36)
		userID := "guest|" + sfx
		username := "guest-" + sfx[len(sfx)-6:]
		_, _ = db.ExecContext(r.Context(),
			`INSERT INTO users (id, username, role, created_at) VALUES ($1,$2,'student',$3)`,
			userID, username, time.Now().Unix())

		tok, err := a.IssueJWT(userID, username)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		setGuestCookie(w, userID)
		_ = json.NewEncoder(w).Encode(tokenOut{AccessToken: tok, UserID: userID, Username: username})
	}
}

func setGuestCookie(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "dp_guest_id",
		Value:    userID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}
