package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"restaurant-finder/models"

	"github.com/jmoiron/sqlx"
	"github.com/umakantv/go-utils/errs"
	"github.com/umakantv/go-utils/httpserver"
	logger "github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

// Header names used by the client for credentials.
const (
	headerEmail       = "email"
	headerPassword    = "password"
	headerNewPassword = "newPassword"
	headerAPIKey      = "apiKey"
)

const minPasswordLength = 8

// logRequest logs with route, method, path and the authenticated client if any.
func logRequest(ctx context.Context, level string, message string, fields ...zap.Field) {
	routeName := httpserver.GetRouteName(ctx)
	method := httpserver.GetRouteMethod(ctx)
	path := httpserver.GetRoutePath(ctx)
	auth := httpserver.GetRequestAuth(ctx)

	logMsg := time.Now().Format("2006-01-02 15:04:05") + " - " + routeName + " - " + method + " - " + path
	if auth != nil {
		logMsg += " - client:" + auth.Client
	}
	if message != "" {
		logMsg += " - " + message
	}

	allFields := append([]zap.Field{
		zap.String("route", routeName),
		zap.String("method", method),
		zap.String("path", path),
	}, fields...)

	switch level {
	case "info":
		logger.Info(logMsg, allFields...)
	case "error":
		logger.Error(logMsg, allFields...)
	case "debug":
		logger.Debug(logMsg, allFields...)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// validEmail mirrors the client rule: non-empty and containing "@".
func validEmail(email string) bool {
	return email != "" && strings.Contains(email, "@")
}

// userByAPIKey resolves the account owning apiKey.
// It returns sql.ErrNoRows for an empty or unknown key.
func userByAPIKey(ctx context.Context, db *sqlx.DB, apiKey string) (*models.User, error) {
	if apiKey == "" {
		return nil, sql.ErrNoRows
	}
	var user models.User
	err := db.GetContext(ctx, &user, db.Rebind("SELECT id, username, email, password, api_key, created_at, updated_at FROM users WHERE api_key = ?"), apiKey)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// requireUser authenticates the apiKey header and writes 401/500 on failure.
func requireUser(ctx context.Context, w http.ResponseWriter, r *http.Request, db *sqlx.DB) (*models.User, bool) {
	user, err := userByAPIKey(ctx, db, r.Header.Get(headerAPIKey))
	if errors.Is(err, sql.ErrNoRows) {
		logRequest(ctx, "error", "Invalid API key")
		writeJSON(w, http.StatusUnauthorized, errs.NewValidationError("Invalid API key."))
		return nil, false
	}
	if err != nil {
		logRequest(ctx, "error", "API key lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Database error"))
		return nil, false
	}
	return user, true
}
