package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"restaurant-finder/cache"
	"restaurant-finder/models"
	"restaurant-finder/yelp"

	"github.com/gorilla/mux"
	"github.com/umakantv/go-utils/errs"
	"go.uber.org/zap"
)

// Directory is the upstream business source (Yelp in production).
type Directory interface {
	Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResponse, error)
	Business(ctx context.Context, id string) (*models.Restaurant, error)
}

// SearchHandler proxies restaurant search and detail lookups.
type SearchHandler struct {
	directory  Directory
	businesses *cache.BusinessCache
}

// NewSearchHandler creates a search handler; businesses may be nil.
func NewSearchHandler(directory Directory, businesses *cache.BusinessCache) *SearchHandler {
	return &SearchHandler{
		directory:  directory,
		businesses: businesses,
	}
}

// Search handles POST /api/search
func (h *SearchHandler) Search(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	var criteria models.SearchCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		logRequest(ctx, "error", "Invalid request body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError("Invalid JSON"))
		return
	}

	criteria.Term = strings.TrimSpace(criteria.Term)
	criteria.Location = strings.TrimSpace(criteria.Location)
	if criteria.Term == "" || criteria.Location == "" {
		logRequest(ctx, "error", "Missing search term or location")
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError("Both a search term and location are required"))
		return
	}

	logRequest(ctx, "info", "Searching", zap.String("term", criteria.Term), zap.String("location", criteria.Location))

	result, err := h.directory.Search(ctx, criteria)
	if err != nil {
		logRequest(ctx, "error", "Directory search failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Failed to fetch results"))
		return
	}
	if result.Businesses == nil {
		result.Businesses = []models.Restaurant{}
	}
	for _, b := range result.Businesses {
		h.businesses.Put(b)
	}

	logRequest(ctx, "info", "Search complete", zap.Int("count", len(result.Businesses)), zap.Int("total", result.Total))
	writeJSON(w, http.StatusOK, result)
}

// GetRestaurant handles GET /api/restaurants/{id}
func (h *SearchHandler) GetRestaurant(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errs.NewValidationError("Restaurant ID is required."))
		return
	}

	if cached, ok := h.businesses.Get(id); ok {
		logRequest(ctx, "debug", "Serving restaurant from cache", zap.String("restaurant_id", id))
		writeJSON(w, http.StatusOK, cached)
		return
	}

	restaurant, err := h.directory.Business(ctx, id)
	var apiErr *yelp.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		logRequest(ctx, "info", "Restaurant not found", zap.String("restaurant_id", id))
		writeJSON(w, http.StatusNotFound, errs.NewNotFoundError("Restaurant not found"))
		return
	}
	if err != nil {
		logRequest(ctx, "error", "Directory lookup failed", zap.Error(err), zap.String("restaurant_id", id))
		writeJSON(w, http.StatusInternalServerError, errs.NewInternalServerError("Failed to fetch restaurant"))
		return
	}

	h.businesses.Put(*restaurant)
	writeJSON(w, http.StatusOK, restaurant)
}
