package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cachepackage "restaurant-finder/cache"
	"restaurant-finder/config"
	"restaurant-finder/database"
	"restaurant-finder/handlers"
	"restaurant-finder/yelp"

	"github.com/jmoiron/sqlx"
	"github.com/umakantv/go-utils/httpserver"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

const authTypeAPIKey = "apiKey"

// newAuthChecker authenticates the apiKey header against the users table.
func newAuthChecker(dbConn *sqlx.DB) func(r *http.Request) (bool, httpserver.RequestAuth) {
	return func(r *http.Request) (bool, httpserver.RequestAuth) {
		apiKey := r.Header.Get("apiKey")
		if apiKey == "" {
			return false, httpserver.RequestAuth{}
		}

		var user struct {
			ID       int    `db:"id"`
			Username string `db:"username"`
		}
		err := dbConn.GetContext(r.Context(), &user, dbConn.Rebind("SELECT id, username FROM users WHERE api_key = ?"), apiKey)
		if err != nil {
			return false, httpserver.RequestAuth{}
		}

		return true, httpserver.RequestAuth{
			Type:   authTypeAPIKey,
			Client: user.Username,
			Claims: map[string]interface{}{"user_id": user.ID},
		}
	}
}

// Handlers groups everything the route table dispatches to.
type Handlers struct {
	Users     *handlers.UserHandler
	Search    *handlers.SearchHandler
	Favorites *handlers.FavoriteHandler
	Comments  *handlers.CommentHandler
}

// NewHandlers builds the handler set over one database and directory.
func NewHandlers(dbConn *sqlx.DB, directory handlers.Directory, businesses *cachepackage.BusinessCache) Handlers {
	return Handlers{
		Users:     handlers.NewUserHandler(dbConn),
		Search:    handlers.NewSearchHandler(directory, businesses),
		Favorites: handlers.NewFavoriteHandler(dbConn, directory, businesses),
		Comments:  handlers.NewCommentHandler(dbConn),
	}
}

// Routes returns the route table paired with its handlers.
func Routes(h Handlers) []RouteBinding {
	return []RouteBinding{
		{httpserver.Route{Name: "HealthCheck", Method: "GET", Path: "/health", AuthType: "none"}, health},

		{httpserver.Route{Name: "Login", Method: "GET", Path: "/api/login", AuthType: "none"}, h.Users.Login},
		{httpserver.Route{Name: "Register", Method: "POST", Path: "/api/register", AuthType: "none"}, h.Users.Register},
		{httpserver.Route{Name: "ChangePassword", Method: "PUT", Path: "/api/change_password", AuthType: authTypeAPIKey}, h.Users.ChangePassword},

		{httpserver.Route{Name: "Search", Method: "POST", Path: "/api/search", AuthType: "none"}, h.Search.Search},
		{httpserver.Route{Name: "GetRestaurant", Method: "GET", Path: "/api/restaurants/{id}", AuthType: "none"}, h.Search.GetRestaurant},

		{httpserver.Route{Name: "ListFavorites", Method: "GET", Path: "/api/favorites", AuthType: authTypeAPIKey}, h.Favorites.ListFavorites},
		{httpserver.Route{Name: "AddFavorite", Method: "POST", Path: "/api/favorites", AuthType: authTypeAPIKey}, h.Favorites.AddFavorite},
		{httpserver.Route{Name: "FavoriteCounts", Method: "POST", Path: "/api/favorites/counts", AuthType: "none"}, h.Favorites.Counts},
		{httpserver.Route{Name: "RemoveFavorite", Method: "DELETE", Path: "/api/favorites/{id}", AuthType: authTypeAPIKey}, h.Favorites.RemoveFavorite},

		{httpserver.Route{Name: "ListComments", Method: "GET", Path: "/api/comments/{restaurantId}", AuthType: "none"}, h.Comments.ListComments},
		{httpserver.Route{Name: "CreateComment", Method: "POST", Path: "/api/comments/{restaurantId}", AuthType: authTypeAPIKey}, h.Comments.CreateComment},
	}
}

// RouteBinding pairs a route with the function serving it.
type RouteBinding struct {
	Route   httpserver.Route
	Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request)
}

func health(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy", "service": "restaurant-finder"}`))
}

// StartServer wires storage, cache and the Yelp client, then serves the API
// until the listener fails. With ephemeral set the database lives in memory.
func StartServer(cfg *config.Config, ephemeral bool) error {
	// Initialize logger
	logger.Init(logger.LoggerConfig{
		CallerKey:  "file",
		TimeKey:    "timestamp",
		CallerSkip: 1,
	})

	logger.Info("Starting restaurant-finder API...")

	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	// Initialize database
	var dbConn *sqlx.DB
	var err error
	if ephemeral {
		logger.Info("Using in-memory database")
		dbConn, err = database.OpenMemory()
	} else {
		dbConn, err = database.InitializeDatabase(cfg.Database)
	}
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Initialize cache
	backend, err := cachepackage.InitializeCache(cfg.Cache)
	if err != nil {
		// detail lookups still work uncached
		logger.Error("Continuing without business cache", zap.Error(err))
		backend = nil
	}
	if backend != nil {
		defer backend.Close()
	}
	businesses := cachepackage.NewBusinessCache(backend, cfg.BusinessTTL())

	directory := yelp.NewClient(cfg.Yelp.BaseURL, cfg.Yelp.APIKey, cfg.YelpTimeout())

	h := NewHandlers(dbConn, directory, businesses)

	// Create HTTP server with authentication
	server := httpserver.New(cfg.Server.Port, newAuthChecker(dbConn))

	for _, b := range Routes(h) {
		server.Register(b.Route, httpserver.HandlerFunc(b.Handler))
	}

	logger.Info(fmt.Sprintf("restaurant-finder API started on port %s", cfg.Server.Port),
		zap.Duration("business_ttl", cfg.BusinessTTL()),
		zap.Time("started_at", time.Now()))
	logger.Info("Health check: GET /health")

	// Start server
	if err := server.Start(); err != nil {
		logger.Error("Server failed to start", zap.Error(err))
		return err
	}
	return nil
}
