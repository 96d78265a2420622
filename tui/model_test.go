package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"restaurant-finder/client"
	"restaurant-finder/models"
	"restaurant-finder/router"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubBackend serves one account, a fixed result list and in-memory
// favorites and comments.
type stubBackend struct {
	mu        sync.Mutex
	favorites []models.Restaurant
	comments  map[string][]models.Comment
	results   []models.Restaurant
}

func newStubBackend(n int) *stubBackend {
	b := &stubBackend{comments: map[string][]models.Comment{}}
	for i := 1; i <= n; i++ {
		b.results = append(b.results, models.Restaurant{
			ID:   fmt.Sprintf("r%d", i),
			Name: fmt.Sprintf("Place %d", i),
		})
	}
	return b
}

const stubKey = "rk_ann"

func (b *stubBackend) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	if email != "ann@example.com" || password != "password123" {
		return nil, &client.BackendError{Status: 401, Message: "Incorrect password."}
	}
	return &models.AuthResponse{Username: "ann", APIKey: stubKey}, nil
}

func (b *stubBackend) Register(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	return &models.AuthResponse{Username: "new", APIKey: "rk_new"}, nil
}

func (b *stubBackend) ChangePassword(ctx context.Context, email, newPassword, apiKey string) error {
	return nil
}

func (b *stubBackend) Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResponse, error) {
	return &models.SearchResponse{Businesses: b.results, Total: len(b.results)}, nil
}

func (b *stubBackend) Favorites(ctx context.Context, apiKey string) ([]models.Restaurant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if apiKey != stubKey {
		return nil, &client.BackendError{Status: 401}
	}
	return append([]models.Restaurant(nil), b.favorites...), nil
}

func (b *stubBackend) AddFavorite(ctx context.Context, apiKey string, r models.Restaurant) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.favorites = append(b.favorites, r)
	return nil
}

func (b *stubBackend) RemoveFavorite(ctx context.Context, apiKey, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.favorites {
		if r.ID == id {
			b.favorites = append(b.favorites[:i], b.favorites[i+1:]...)
			return nil
		}
	}
	return &client.BackendError{Status: 404}
}

func (b *stubBackend) FavoriteCounts(ctx context.Context, ids []string) (map[string]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id] = 0
		for _, r := range b.favorites {
			if r.ID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (b *stubBackend) Comments(ctx context.Context, id string) ([]models.Comment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id == "broken" {
		return nil, errors.New("boom")
	}
	return append([]models.Comment(nil), b.comments[id]...), nil
}

func (b *stubBackend) PostComment(ctx context.Context, apiKey, id, content string) (*models.Comment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := models.Comment{ID: len(b.comments[id]) + 1, Content: content, Username: "ann", CommentedAt: time.Now()}
	b.comments[id] = append([]models.Comment{c}, b.comments[id]...)
	return &c, nil
}

func newModel(t *testing.T, backend client.Backend) Model {
	t.Helper()
	app := client.NewApp(backend, &client.MemoryStorage{}, nil)
	require.NoError(t, app.Start(context.Background()))
	return New(context.Background(), app)
}

// press sends one key and returns the model with the command it produced.
func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// finish runs an operation command and feeds its result back.
func finish(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	done, ok := cmd().(opDoneMsg)
	require.True(t, ok, "expected an operation result")
	next, _ := m.Update(done)
	return next.(Model)
}

func search(t *testing.T, m Model) Model {
	t.Helper()
	m = typeText(t, m, "pizza")
	m, _ = press(t, m, key(tea.KeyTab))
	m = typeText(t, m, "Boston")
	m, cmd := press(t, m, key(tea.KeyEnter))
	return finish(t, m, cmd)
}

func login(t *testing.T, m Model, email, password string) Model {
	t.Helper()
	m, _ = press(t, m, key(tea.KeyF2))
	require.Equal(t, router.Login, m.Page())
	m = typeText(t, m, email)
	m, _ = press(t, m, key(tea.KeyTab))
	m = typeText(t, m, password)
	m, cmd := press(t, m, key(tea.KeyEnter))
	return finish(t, m, cmd)
}

func TestSearch(t *testing.T) {
	m := newModel(t, newStubBackend(2))
	assert.Equal(t, router.Home, m.Page())

	m = search(t, m)

	c := m.app.Search.Criteria()
	assert.Equal(t, "pizza", c.Term)
	assert.Equal(t, "Boston", c.Location)

	view := m.View()
	assert.Contains(t, view, "Place 1")
	assert.Contains(t, view, "Place 2")
	assert.Contains(t, view, "0 Partner Loves This")
}

func TestSearch_MissingLocation(t *testing.T) {
	m := newModel(t, newStubBackend(1))
	m = typeText(t, m, "pizza")
	m, cmd := press(t, m, key(tea.KeyEnter))
	m = finish(t, m, cmd)

	assert.Contains(t, m.View(), "Both a search term and location are required")
}

func TestFilterKeys(t *testing.T) {
	m := newModel(t, newStubBackend(1))
	m = search(t, m)
	m, _ = press(t, m, key(tea.KeyTab))
	require.True(t, m.onResults())

	for _, k := range []string{"s", "l", "+", "2", "]", "x"} {
		m, _ = press(t, m, runes(k))
	}

	c := m.app.Search.Criteria()
	assert.Equal(t, "rating", c.SortBy)
	assert.Equal(t, 50, c.Limit)
	assert.Equal(t, 5500, c.Radius)
	assert.Equal(t, "1,3,4", c.Price)
	assert.Equal(t, "happy_hour", c.Attributes)
}

func TestFavoriteRequiresLogin(t *testing.T) {
	m := newModel(t, newStubBackend(1))
	m = search(t, m)
	m, _ = press(t, m, key(tea.KeyTab))

	m, cmd := press(t, m, runes("f"))
	m = finish(t, m, cmd)

	assert.Equal(t, router.Login, m.Page())
	assert.Equal(t, "Please log in to save favorites", m.app.Favorites.Snapshot().Error)
	assert.Contains(t, m.View(), "Please log in to save favorites")
}

func TestLogin(t *testing.T) {
	m := newModel(t, newStubBackend(1))
	m = login(t, m, "ann@example.com", "password123")

	assert.Equal(t, router.Home, m.Page())
	assert.True(t, m.app.Session.Authenticated())
	assert.Contains(t, m.View(), "signed in as ann")
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  string
		wantPass string
	}{
		{"bad email", "ann", "password123", "Invalid email format", "password123"},
		{"short password", "ann@example.com", "short", "Password must be at least 8 characters long.", ""},
		{"wrong password", "ann@example.com", "password999", "Incorrect password.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t, newStubBackend(1))
			m = login(t, m, tt.email, tt.password)

			assert.Equal(t, router.Login, m.Page())
			assert.Contains(t, m.View(), tt.wantErr)
			assert.Equal(t, tt.email, m.form[0].Value())
			assert.Equal(t, tt.wantPass, m.form[1].Value())
		})
	}
}

func TestFavoritesPage(t *testing.T) {
	m := newModel(t, newStubBackend(2))
	m = login(t, m, "ann@example.com", "password123")
	m = search(t, m)
	m, _ = press(t, m, key(tea.KeyTab))

	m, cmd := press(t, m, runes("f"))
	m = finish(t, m, cmd)
	require.True(t, m.app.Favorites.IsFavorite("r1"))

	m, cmd = press(t, m, key(tea.KeyF5))
	require.Equal(t, router.Favorite, m.Page())
	m = finish(t, m, cmd)
	assert.Contains(t, m.View(), "Place 1")
	assert.Contains(t, m.View(), "1 Partner Loves This")

	m, cmd = press(t, m, runes("d"))
	m = finish(t, m, cmd)
	assert.Empty(t, m.app.Favorites.Snapshot().Favorites)
	assert.Contains(t, m.View(), "No favorites yet")
}

func TestProtectedPagesRedirect(t *testing.T) {
	m := newModel(t, newStubBackend(1))

	m, _ = press(t, m, key(tea.KeyF4))
	assert.Equal(t, router.Login, m.Page())

	m, _ = press(t, m, key(tea.KeyF1))
	assert.Equal(t, router.Home, m.Page())
}

func TestComments(t *testing.T) {
	m := newModel(t, newStubBackend(1))
	m = login(t, m, "ann@example.com", "password123")
	m = search(t, m)
	m, _ = press(t, m, key(tea.KeyTab))

	m, cmd := press(t, m, runes("c"))
	m = finish(t, m, cmd)
	assert.True(t, m.app.Comments.Panel("r1").Open)
	assert.Contains(t, m.View(), "No comments yet")

	m, _ = press(t, m, runes("i"))
	require.True(t, m.commenting)
	m = typeText(t, m, "Great crust")
	assert.Equal(t, "Great crust", m.app.Comments.Panel("r1").Draft)

	m, cmd = press(t, m, key(tea.KeyEnter))
	m = finish(t, m, cmd)

	assert.False(t, m.commenting)
	panel := m.app.Comments.Panel("r1")
	require.Len(t, panel.Comments, 1)
	assert.Equal(t, "Great crust", panel.Comments[0].Content)
	assert.Empty(t, panel.Draft)
	assert.Contains(t, m.View(), "Great crust")
}

func TestLogout(t *testing.T) {
	m := newModel(t, newStubBackend(1))
	m = login(t, m, "ann@example.com", "password123")

	m, cmd := press(t, m, key(tea.KeyF6))
	m = finish(t, m, cmd)

	assert.False(t, m.app.Session.Authenticated())
	assert.Equal(t, router.Home, m.Page())
	assert.NotContains(t, m.View(), "signed in as")
}

func TestQuit(t *testing.T) {
	m := newModel(t, newStubBackend(1))
	_, cmd := press(t, m, key(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
