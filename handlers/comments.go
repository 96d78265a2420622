package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"restaurant-finder/models"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/umakantv/go-utils/errs"
	"go.uber.org/zap"
)

// CommentHandler serves the per-restaurant comment threads.
type CommentHandler struct {
	db *sqlx.DB
}

func NewCommentHandler(db *sqlx.DB) *CommentHandler {
	return &CommentHandler{db: db}
}

// ListComments handles GET /api/comments/{restaurantId} - newest first
func (h *CommentHandler) ListComments(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	restaurantID := mux.Vars(r)["restaurantId"]

	comments := []models.Comment{}
	err := h.db.SelectContext(ctx, &comments, h.db.Rebind(`
		SELECT c.id, c.content, c.commented_at, u.username
		FROM comments c
		JOIN users u ON c.user_id = u.id
		WHERE c.restaurant_id = ?
		ORDER BY c.commented_at DESC, c.id DESC`), restaurantID)
	if err != nil {
		logRequest(ctx, "error", "Failed to query comments", zap.Error(err), zap.String("restaurant_id", restaurantID))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Database error"))
		return
	}

	logRequest(ctx, "debug", "Comments retrieved", zap.String("restaurant_id", restaurantID), zap.Int("count", len(comments)))
	writeJSON(w, http.StatusOK, models.CommentsResponse{Comments: comments})
}

// CreateComment handles POST /api/comments/{restaurantId}
func (h *CommentHandler) CreateComment(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(ctx, w, r, h.db)
	if !ok {
		return
	}
	restaurantID := mux.Vars(r)["restaurantId"]

	var req models.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logRequest(ctx, "error", "Invalid request body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError("Invalid JSON"))
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError("Comment cannot be empty"))
		return
	}

	comment := models.Comment{
		Content:     content,
		Username:    user.Username,
		CommentedAt: time.Now().UTC(),
	}
	err := h.db.QueryRowxContext(ctx, h.db.Rebind("INSERT INTO comments (user_id, restaurant_id, content, commented_at) VALUES (?, ?, ?, ?) RETURNING id"),
		user.ID, restaurantID, comment.Content, comment.CommentedAt).Scan(&comment.ID)
	if err != nil {
		logRequest(ctx, "error", "Failed to add comment", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Failed to add comment"))
		return
	}

	logRequest(ctx, "info", "Comment added", zap.Int("comment_id", comment.ID), zap.String("restaurant_id", restaurantID))
	writeJSON(w, http.StatusCreated, comment)
}
