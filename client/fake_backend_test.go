package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"restaurant-finder/models"
)

// fakeBackend is an in-memory server with per-operation call counters.
type fakeBackend struct {
	mu sync.Mutex

	users     map[string]string // email -> password
	keys      map[string]string // api key -> email
	favorites map[string][]models.Restaurant
	counts    map[string]int
	comments  map[string][]models.Comment

	businesses []models.Restaurant

	searchErr error
	countsErr error
	toggleErr error
	// hooks run inside the call before it answers
	searchHook func(models.SearchCriteria)
	toggleHook func()

	calls map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		users:     map[string]string{},
		keys:      map[string]string{},
		favorites: map[string][]models.Restaurant{},
		counts:    map[string]int{},
		comments:  map[string][]models.Comment{},
		calls:     map[string]int{},
	}
}

func (b *fakeBackend) addUser(email, password string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = password
	key := "rk_" + email
	b.keys[key] = email
	return key
}

func (b *fakeBackend) called(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *fakeBackend) totalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func (b *fakeBackend) record(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[op]++
}

func (b *fakeBackend) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	b.record("login")
	b.mu.Lock()
	defer b.mu.Unlock()
	stored, ok := b.users[email]
	if !ok {
		return nil, &BackendError{Status: 401, Message: "User with this email does not exist."}
	}
	if stored != password {
		return nil, &BackendError{Status: 401, Message: "Incorrect password."}
	}
	return &models.AuthResponse{Username: usernameOf(email), APIKey: "rk_" + email}, nil
}

func (b *fakeBackend) Register(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	b.record("register")
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[email]; ok {
		return nil, &BackendError{Status: 409}
	}
	b.users[email] = password
	b.keys["rk_"+email] = email
	return &models.AuthResponse{Username: usernameOf(email), APIKey: "rk_" + email}, nil
}

func (b *fakeBackend) ChangePassword(ctx context.Context, email, newPassword, apiKey string) error {
	b.record("change_password")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.keys[apiKey] != email {
		return &BackendError{Status: 401, Message: "Invalid API key."}
	}
	b.users[email] = newPassword
	return nil
}

func (b *fakeBackend) Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResponse, error) {
	b.record("search")
	if b.searchHook != nil {
		b.searchHook(criteria)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.searchErr != nil {
		return nil, b.searchErr
	}
	return &models.SearchResponse{
		Businesses: append([]models.Restaurant(nil), b.businesses...),
		Total:      len(b.businesses),
	}, nil
}

func (b *fakeBackend) Favorites(ctx context.Context, apiKey string) ([]models.Restaurant, error) {
	b.record("favorites")
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.keys[apiKey]
	if !ok {
		return nil, &BackendError{Status: 401}
	}
	return append([]models.Restaurant(nil), b.favorites[email]...), nil
}

func (b *fakeBackend) AddFavorite(ctx context.Context, apiKey string, restaurant models.Restaurant) error {
	b.record("add_favorite")
	if b.toggleHook != nil {
		b.toggleHook()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.toggleErr != nil {
		return b.toggleErr
	}
	email := b.keys[apiKey]
	for _, r := range b.favorites[email] {
		if r.ID == restaurant.ID {
			return nil
		}
	}
	b.favorites[email] = append(b.favorites[email], restaurant)
	b.counts[restaurant.ID]++
	return nil
}

func (b *fakeBackend) RemoveFavorite(ctx context.Context, apiKey, restaurantID string) error {
	b.record("remove_favorite")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.toggleErr != nil {
		return b.toggleErr
	}
	email := b.keys[apiKey]
	list := b.favorites[email]
	for i, r := range list {
		if r.ID == restaurantID {
			b.favorites[email] = append(list[:i], list[i+1:]...)
			b.counts[restaurantID]--
			return nil
		}
	}
	return &BackendError{Status: 404, Message: "Restaurant was not in favorites."}
}

func (b *fakeBackend) FavoriteCounts(ctx context.Context, ids []string) (map[string]int, error) {
	b.record("counts")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.countsErr != nil {
		return nil, b.countsErr
	}
	out := map[string]int{}
	for _, id := range ids {
		out[id] = b.counts[id]
	}
	return out, nil
}

func (b *fakeBackend) Comments(ctx context.Context, restaurantID string) ([]models.Comment, error) {
	b.record("comments")
	b.mu.Lock()
	defer b.mu.Unlock()
	if restaurantID == "broken" {
		return nil, errors.New("boom")
	}
	return append([]models.Comment(nil), b.comments[restaurantID]...), nil
}

func (b *fakeBackend) PostComment(ctx context.Context, apiKey, restaurantID, content string) (*models.Comment, error) {
	b.record("post_comment")
	b.mu.Lock()
	defer b.mu.Unlock()
	if restaurantID == "broken" {
		return nil, &BackendError{Status: 500}
	}
	c := models.Comment{
		ID:          len(b.comments[restaurantID]) + 1,
		Content:     content,
		Username:    usernameOf(b.keys[apiKey]),
		CommentedAt: time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC),
	}
	b.comments[restaurantID] = append([]models.Comment{c}, b.comments[restaurantID]...)
	return &c, nil
}

func usernameOf(email string) string {
	for i, ch := range email {
		if ch == '@' {
			return email[:i]
		}
	}
	return email
}

// recordingNavigator remembers every page it was sent to.
type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	return path
}

func (n *recordingNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}

// staticToken is a TokenSource with a fixed key.
type staticToken string

func (t staticToken) APIKey() string { return string(t) }

func restaurants(n int) []models.Restaurant {
	out := make([]models.Restaurant, n)
	for i := range out {
		out[i] = models.Restaurant{ID: fmt.Sprintf("r%d", i+1), Name: fmt.Sprintf("Place %d", i+1)}
	}
	return out
}
