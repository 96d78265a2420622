package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"restaurant-finder/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/umakantv/go-utils/errs"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserHandler serves login, registration and password change.
// Credentials arrive in request headers, matching the web client.
type UserHandler struct {
	db         *sqlx.DB
	bcryptCost int
}

// NewUserHandler creates a new user handler
func NewUserHandler(db *sqlx.DB) *UserHandler {
	return &UserHandler{
		db:         db,
		bcryptCost: 12,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (h *UserHandler) WithBcryptCost(cost int) *UserHandler {
	h.bcryptCost = cost
	return h
}

// generateAPIKey returns an opaque per-user credential.
func generateAPIKey() string {
	return "rk_" + strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// usernameFromEmail derives the display name from the local part of the address.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}

// validateCredentials applies the registration rules shared by login and register.
func validateCredentials(email, password string) string {
	if !validEmail(email) {
		return "Invalid email format."
	}
	if len(password) < minPasswordLength {
		return "Password must be at least 8 characters long."
	}
	return ""
}

// Login handles GET /api/login - verify email/password headers and return the api key
func (h *UserHandler) Login(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.Header.Get(headerEmail))
	password := r.Header.Get(headerPassword)

	logRequest(ctx, "info", "Login request", zap.String("email", email))

	if msg := validateCredentials(email, password); msg != "" {
		logRequest(ctx, "error", "Invalid login input", zap.String("reason", msg))
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError(msg))
		return
	}

	var user models.User
	err := h.db.GetContext(ctx, &user, h.db.Rebind("SELECT id, username, email, password, api_key, created_at, updated_at FROM users WHERE email = ?"), email)
	if errors.Is(err, sql.ErrNoRows) {
		logRequest(ctx, "error", "User not found", zap.String("email", email))
		writeJSON(w, http.StatusUnauthorized, errs.NewValidationError("User with this email does not exist."))
		return
	}
	if err != nil {
		logRequest(ctx, "error", "Failed to query user", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Database error"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		logRequest(ctx, "error", "Invalid password", zap.String("email", email))
		writeJSON(w, http.StatusUnauthorized, errs.NewValidationError("Incorrect password."))
		return
	}

	logRequest(ctx, "info", "Login successful", zap.Int("user_id", user.ID))

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Message:  "User logged in successfully.",
		Username: user.Username,
		APIKey:   user.APIKey,
	})
}

// Register handles POST /api/register - create the account and return its api key
func (h *UserHandler) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.Header.Get(headerEmail))
	password := r.Header.Get(headerPassword)

	logRequest(ctx, "info", "Register request", zap.String("email", email))

	if msg := validateCredentials(email, password); msg != "" {
		logRequest(ctx, "error", "Invalid registration input", zap.String("reason", msg))
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError(msg))
		return
	}

	var existing int
	if err := h.db.GetContext(ctx, &existing, h.db.Rebind("SELECT COUNT(*) FROM users WHERE email = ?"), email); err != nil {
		logRequest(ctx, "error", "Failed to query user", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Database error"))
		return
	}
	if existing > 0 {
		logRequest(ctx, "error", "Email already registered", zap.String("email", email))
		writeJSON(w, http.StatusConflict, errs.NewValidationError("User with this email already exists."))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		logRequest(ctx, "error", "Password hashing failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Failed to process password"))
		return
	}

	username := usernameFromEmail(email)
	apiKey := generateAPIKey()
	now := time.Now().UTC()

	_, err = h.db.ExecContext(ctx, h.db.Rebind("INSERT INTO users (username, email, password, api_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"),
		username, email, string(hashedPassword), apiKey, now, now)
	if err != nil {
		logRequest(ctx, "error", "Failed to create user", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Failed to create user"))
		return
	}

	logRequest(ctx, "info", "User created successfully", zap.String("username", username))

	writeJSON(w, http.StatusCreated, models.AuthResponse{
		Message:  "User created successfully.",
		Username: username,
		APIKey:   apiKey,
	})
}

// ChangePassword handles PUT /api/change_password - the api key must belong to the email
func (h *UserHandler) ChangePassword(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.Header.Get(headerEmail))
	newPassword := r.Header.Get(headerNewPassword)
	apiKey := r.Header.Get(headerAPIKey)

	logRequest(ctx, "info", "Change password request", zap.String("email", email))

	if len(newPassword) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError("Password must be at least 8 characters long."))
		return
	}

	user, ok := requireUser(ctx, w, r, h.db)
	if !ok {
		return
	}
	if email != "" && !strings.EqualFold(email, user.Email) {
		logRequest(ctx, "error", "API key does not match email", zap.String("email", email))
		writeJSON(w, http.StatusUnauthorized, errs.NewValidationError("Invalid API key."))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), h.bcryptCost)
	if err != nil {
		logRequest(ctx, "error", "Password hashing failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Failed to process password"))
		return
	}

	_, err = h.db.ExecContext(ctx, h.db.Rebind("UPDATE users SET password = ?, updated_at = ? WHERE id = ? AND api_key = ?"),
		string(hashedPassword), time.Now().UTC(), user.ID, apiKey)
	if err != nil {
		logRequest(ctx, "error", "Failed to update password", zap.Error(err), zap.Int("user_id", user.ID))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Failed to update password"))
		return
	}

	logRequest(ctx, "info", "Password changed", zap.Int("user_id", user.ID))

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Password changed successfully."})
}
