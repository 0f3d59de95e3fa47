package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/taskdeck/go-task-api/internal/db"
	"golang.org/x/crypto/bcrypt"
)

/*
handles routes:
- GET /user - current profile
- PUT /user - update profile
- DELETE /user - delete account and all owned tasks
*/
func (h *Handler) HandleUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	switch r.Method {
	case http.MethodGet:
		user, err := h.UserRepo.GetByID(ctx, userID)
		if err != nil {
			sendServiceError(w, err)
			return
		}
		sendJSON(w, http.StatusOK, user)

	case http.MethodPut:
		h.updateUser(w, r, ctx)

	case http.MethodDelete:
		if err := h.UserRepo.Delete(ctx, userID); err != nil {
			sendServiceError(w, err)
			return
		}
		log.Printf("User deleted: %s", userID)
		w.WriteHeader(http.StatusNoContent)

	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, ctx context.Context) {
	userID, _ := userIDFrom(r)

	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var input struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	patch := &db.UserPatch{}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			sendError(w, "Username cannot be empty", http.StatusBadRequest)
			return
		}
		patch.Username = &username
	}
	if input.Email != nil {
		if !isValidEmail(*input.Email) {
			sendError(w, "Invalid email", http.StatusBadRequest)
			return
		}
		patch.Email = input.Email
	}
	if input.Password != nil {
		if len(*input.Password) < 4 {
			sendError(w, "Password must be at least 4 characters long", http.StatusBadRequest)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Error hashing password: %v", err)
			sendError(w, "Cannot hash password", http.StatusInternalServerError)
			return
		}
		hashed := string(hash)
		patch.PasswordHash = &hashed
	}

	if _, err := h.UserRepo.Update(ctx, userID, patch); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
