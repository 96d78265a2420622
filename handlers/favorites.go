package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"restaurant-finder/cache"
	"restaurant-finder/models"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/umakantv/go-utils/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultLookupConcurrency bounds parallel directory calls when listing favorites.
const defaultLookupConcurrency = 8

// FavoriteHandler manages the per-user favorite list and the public counts.
type FavoriteHandler struct {
	db          *sqlx.DB
	directory   Directory
	businesses  *cache.BusinessCache
	concurrency int
}

// NewFavoriteHandler creates a favorites handler; businesses may be nil.
func NewFavoriteHandler(db *sqlx.DB, directory Directory, businesses *cache.BusinessCache) *FavoriteHandler {
	return &FavoriteHandler{
		db:          db,
		directory:   directory,
		businesses:  businesses,
		concurrency: defaultLookupConcurrency,
	}
}

// ListFavorites handles GET /api/favorites - saved restaurants with full details
func (h *FavoriteHandler) ListFavorites(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(ctx, w, r, h.db)
	if !ok {
		return
	}

	var ids []string
	err := h.db.SelectContext(ctx, &ids, h.db.Rebind("SELECT restaurant_id FROM favorites WHERE user_id = ? ORDER BY created_at, id"), user.ID)
	if err != nil {
		logRequest(ctx, "error", "Failed to query favorites", zap.Error(err), zap.Int("user_id", user.ID))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Database error"))
		return
	}

	details := make([]*models.Restaurant, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if cached, ok := h.businesses.Get(id); ok {
				details[i] = &cached
				return nil
			}
			restaurant, err := h.directory.Business(gctx, id)
			if err != nil {
				// one missing business should not hide the rest of the list
				logRequest(ctx, "error", "Failed to get restaurant details", zap.String("restaurant_id", id), zap.Error(err))
				return nil
			}
			h.businesses.Put(*restaurant)
			details[i] = restaurant
			return nil
		})
	}
	g.Wait()

	favorites := make([]models.Restaurant, 0, len(ids))
	for _, d := range details {
		if d != nil {
			favorites = append(favorites, *d)
		}
	}

	logRequest(ctx, "info", "Favorites retrieved", zap.Int("user_id", user.ID), zap.Int("count", len(favorites)))
	writeJSON(w, http.StatusOK, models.FavoritesResponse{Favorites: favorites})
}

// AddFavorite handles POST /api/favorites - body is the restaurant to save
func (h *FavoriteHandler) AddFavorite(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(ctx, w, r, h.db)
	if !ok {
		return
	}

	var restaurant models.Restaurant
	if err := json.NewDecoder(r.Body).Decode(&restaurant); err != nil {
		logRequest(ctx, "error", "Invalid request body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError("Invalid JSON"))
		return
	}
	if restaurant.ID == "" {
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError("Restaurant ID is required."))
		return
	}

	var existing int
	err := h.db.GetContext(ctx, &existing, h.db.Rebind("SELECT COUNT(*) FROM favorites WHERE user_id = ? AND restaurant_id = ?"), user.ID, restaurant.ID)
	if err != nil {
		logRequest(ctx, "error", "Failed to query favorite", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Database error"))
		return
	}
	if existing > 0 {
		writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Restaurant is already a favorite."})
		return
	}

	_, err = h.db.ExecContext(ctx, h.db.Rebind("INSERT INTO favorites (user_id, restaurant_id, created_at) VALUES (?, ?, ?)"),
		user.ID, restaurant.ID, time.Now().UTC())
	if err != nil {
		logRequest(ctx, "error", "Failed to add favorite", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Failed to add favorite"))
		return
	}

	if restaurant.Name != "" {
		h.businesses.Put(restaurant)
	}

	logRequest(ctx, "info", "Favorite added", zap.Int("user_id", user.ID), zap.String("restaurant_id", restaurant.ID))
	writeJSON(w, http.StatusCreated, models.MessageResponse{Message: "Restaurant added to favorites."})
}

// RemoveFavorite handles DELETE /api/favorites/{id}
func (h *FavoriteHandler) RemoveFavorite(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(ctx, w, r, h.db)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	result, err := h.db.ExecContext(ctx, h.db.Rebind("DELETE FROM favorites WHERE user_id = ? AND restaurant_id = ?"), user.ID, id)
	if err != nil {
		logRequest(ctx, "error", "Failed to remove favorite", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Failed to remove favorite"))
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		logRequest(ctx, "info", "Favorite not found for removal", zap.String("restaurant_id", id))
		writeJSON(w, http.StatusNotFound, errs.NewNotFoundError("Restaurant was not in favorites."))
		return
	}

	logRequest(ctx, "info", "Favorite removed", zap.Int("user_id", user.ID), zap.String("restaurant_id", id))
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Restaurant removed from favorites."})
}

// Counts handles POST /api/favorites/counts - body is a list of restaurant ids
func (h *FavoriteHandler) Counts(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		logRequest(ctx, "error", "Invalid request body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError("Invalid JSON"))
		return
	}

	counts, err := favoriteCounts(ctx, h.db, ids)
	if err != nil {
		logRequest(ctx, "error", "Failed to count favorites", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Database error"))
		return
	}

	writeJSON(w, http.StatusOK, models.CountsResponse{Counts: counts})
}

// favoriteCounts returns how many users saved each id; ids nobody saved map to 0.
func favoriteCounts(ctx context.Context, db *sqlx.DB, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	query, args, err := sqlx.In("SELECT restaurant_id, COUNT(user_id) AS favorite_count FROM favorites WHERE restaurant_id IN (?) GROUP BY restaurant_id", ids)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		RestaurantID  string `db:"restaurant_id"`
		FavoriteCount int    `db:"favorite_count"`
	}
	if err := db.SelectContext(ctx, &rows, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.RestaurantID] = row.FavoriteCount
	}
	for _, id := range ids {
		if _, ok := counts[id]; !ok {
			counts[id] = 0
		}
	}
	return counts, nil
}
