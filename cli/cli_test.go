package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"restaurant-finder/client"
	"restaurant-finder/database"
	"restaurant-finder/models"
	"restaurant-finder/server"
	"restaurant-finder/yelp"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umakantv/go-utils/logger"
)

func TestMain(m *testing.M) {
	logger.Init(logger.LoggerConfig{CallerKey: "file", TimeKey: "timestamp", CallerSkip: 1})
	os.Exit(m.Run())
}

type stubDirectory struct {
	places []models.Restaurant
}

func (d stubDirectory) Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResponse, error) {
	return &models.SearchResponse{Businesses: d.places, Total: len(d.places)}, nil
}

func (d stubDirectory) Business(ctx context.Context, id string) (*models.Restaurant, error) {
	for _, p := range d.places {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &yelp.APIError{StatusCode: http.StatusNotFound}
}

// startAPI serves the real route table over an in-memory database.
func startAPI(t *testing.T) string {
	t.Helper()
	conn, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	dir := stubDirectory{places: []models.Restaurant{
		{ID: "r1", Name: "Pizzeria Uno", Rating: 4.5, ReviewCount: 120, Price: "$$",
			Location: models.Location{Address1: "1 Main St", City: "Boston", State: "MA"}},
		{ID: "r2", Name: "Regina", Rating: 4, ReviewCount: 80},
	}}

	router := mux.NewRouter()
	for _, b := range server.Routes(server.NewHandlers(conn, dir, nil)) {
		handler := b.Handler
		router.HandleFunc(b.Route.Path, func(w http.ResponseWriter, r *http.Request) {
			handler(r.Context(), w, r)
		}).Methods(b.Route.Method)
	}

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL
}

// run executes one command line and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupClient(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RESTAURANT_API_URL", startAPI(t))
	t.Setenv("RESTAURANT_STATE_FILE", filepath.Join(dir, "session.yaml"))
	t.Setenv("RESTAURANT_PASSWORD", "")
	return filepath.Join(dir, "restaurant-finder.yaml")
}

func TestClientCommands(t *testing.T) {
	cfgPath := setupClient(t)
	c := func(args ...string) []string { return append([]string{"--config", cfgPath}, args...) }

	out, err := run(t, c("register", "--email", "ann@example.com", "--password", "password123")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered and logged in as ann")

	out, err = run(t, c("search", "pizza", "--location", "Boston", "--raw")...)
	require.NoError(t, err)
	assert.Contains(t, out, "# pizza near Boston")
	assert.Contains(t, out, "## 1. Pizzeria Uno")
	assert.Contains(t, out, "1 Main St, Boston, MA")
	assert.Contains(t, out, "0 Partner Loves This")

	out, err = run(t, c("favorites", "add", "r1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "r1: 1 Partner Loves This")

	out, err = run(t, c("favorites", "add", "r1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to do for r1")

	out, err = run(t, c("favorites", "--raw")...)
	require.NoError(t, err)
	assert.Contains(t, out, "## 1. Pizzeria Uno ♥")
	assert.Contains(t, out, "1 Partner Loves This")

	out, err = run(t, c("search", "pizza", "-l", "Boston", "--raw")...)
	require.NoError(t, err)
	assert.Contains(t, out, "## 1. Pizzeria Uno ♥")

	out, err = run(t, c("comments", "add", "r1", "Great", "crust")...)
	require.NoError(t, err)
	assert.Contains(t, out, "posted by ann")

	out, err = run(t, c("comments", "r1", "--raw")...)
	require.NoError(t, err)
	assert.Contains(t, out, "> Great crust")

	out, err = run(t, c("favorites", "remove", "r1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "r1: 0 Partner Loves This")

	out, err = run(t, c("passwd", "--password", "newpassword1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Password changed successfully")

	out, err = run(t, c("logout")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = run(t, c("favorites")...)
	require.EqualError(t, err, "Please log in to see your favorites")

	_, err = run(t, c("comments", "add", "r1", "hello")...)
	require.EqualError(t, err, "Please log in to comment")

	out, err = run(t, c("login", "--email", "ann@example.com", "--password", "newpassword1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as ann")
}

func TestClientValidation(t *testing.T) {
	cfgPath := setupClient(t)

	_, err := run(t, "--config", cfgPath, "login", "--email", "ann", "--password", "password123")
	require.EqualError(t, err, "Invalid email format")

	_, err = run(t, "--config", cfgPath, "register", "--email", "ann@example.com", "--password", "password123", "--confirm", "password999")
	require.EqualError(t, err, "Passwords do not match")

	_, err = run(t, "--config", cfgPath, "search", "pizza", "--raw")
	require.EqualError(t, err, "Both a search term and location are required")
}

func TestClientCommands_BackendRejections(t *testing.T) {
	cfgPath := setupClient(t)
	c := func(args ...string) []string { return append([]string{"--config", cfgPath}, args...) }

	_, err := run(t, c("register", "--email", "ann@example.com", "--password", "password123")...)
	require.NoError(t, err)
	_, err = run(t, c("logout")...)
	require.NoError(t, err)

	_, err = run(t, c("login", "--email", "ann@example.com", "--password", "password999")...)
	require.EqualError(t, err, "Incorrect password.")

	_, err = run(t, c("login", "--email", "bob@example.com", "--password", "password123")...)
	require.EqualError(t, err, "User with this email does not exist.")

	_, err = run(t, c("register", "--email", "ann@example.com", "--password", "password123")...)
	require.EqualError(t, err, "User with this email already exists.")
}

func TestConfigInit(t *testing.T) {
	cfgPath := setupClient(t)
	t.Setenv("YELP_API_KEY", "secret")

	out, err := run(t, "--config", cfgPath, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+cfgPath)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "api_base_url")

	_, err = run(t, "--config", cfgPath, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	out, err = run(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "timeout:      15s")
}

func TestCreateMigration_RequiresName(t *testing.T) {
	_, err := run(t, "create-migration")
	assert.EqualError(t, err, "--name is required")
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("bogus", false)
	assert.Error(t, err)

	l, err := newLogger("", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}

func TestResultsMarkdown(t *testing.T) {
	state := client.SearchState{
		Criteria: models.SearchCriteria{Term: "ramen", Location: "Seattle", SortBy: "rating"},
		Total:    7,
		Results: []client.Result{
			{Restaurant: models.Restaurant{ID: "a", Name: "Ippudo", URL: "https://yelp.example/a",
				Categories: []models.Category{{Title: "Ramen"}, {Title: "Japanese"}}}, IsFavorite: true, FavoriteCount: 2},
		},
	}

	md := resultsMarkdown(state)
	assert.Contains(t, md, "_Showing 1 of 7 results, sorted by rating_")
	assert.Contains(t, md, "## 1. Ippudo ♥")
	assert.Contains(t, md, "**Categories:** Ramen, Japanese")
	assert.Contains(t, md, "2 Partners Love This")
	assert.Contains(t, md, "[View on Yelp](https://yelp.example/a)")
	assert.NotContains(t, md, "**Rating:**")

	assert.True(t, strings.HasSuffix(resultsMarkdown(client.SearchState{}), "No results found\n"))
}

func TestCommentsMarkdown(t *testing.T) {
	md := commentsMarkdown("a", []models.Comment{
		{Username: "ann", Content: "Rich broth", CommentedAt: time.Date(2025, 3, 1, 14, 30, 0, 0, time.Local)},
	})
	assert.Contains(t, md, "**ann** · Mar 1, 2025, 02:30 PM")
	assert.Contains(t, md, "> Rich broth")
	assert.Contains(t, commentsMarkdown("a", nil), "No comments yet")
}
