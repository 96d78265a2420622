package client

import (
	"context"
	"sync"

	"restaurant-finder/models"
	"restaurant-finder/router"

	"go.uber.org/zap"
)

// TokenSource hands out the current session token, empty when signed out.
type TokenSource interface {
	APIKey() string
}

// loginRedirect sends a signed-out user to the login page. When tokens is the
// session, msg becomes the login page's error.
func loginRedirect(tokens TokenSource, nav Navigator, msg string) {
	if s, ok := tokens.(interface{ SetError(string) }); ok {
		s.SetError(msg)
	}
	if nav != nil {
		nav.Navigate(router.Login)
	}
}

// FavoritesState is a snapshot of the favorite set.
type FavoritesState struct {
	Favorites []models.Restaurant
	Counts    map[string]int
	Loading   bool
	Error     string
}

// Favorites owns the signed-in user's favorite set and keeps the search
// results' favorite flags and counts in step with it.
type Favorites struct {
	mu    sync.Mutex
	state FavoritesState
	// epoch changes on every sign-in and sign-out; responses from an older
	// epoch are dropped
	epoch   uint64
	pending map[string]bool

	backend Backend
	tokens  TokenSource
	search  *SearchManager
	nav     Navigator
	logger  *zap.Logger
}

func NewFavorites(backend Backend, tokens TokenSource, search *SearchManager, nav Navigator, logger *zap.Logger) *Favorites {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Favorites{
		state:   FavoritesState{Counts: map[string]int{}},
		pending: map[string]bool{},
		backend: backend,
		tokens:  tokens,
		search:  search,
		nav:     nav,
		logger:  logger,
	}
}

func (f *Favorites) Snapshot() FavoritesState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	s.Favorites = append([]models.Restaurant(nil), f.state.Favorites...)
	s.Counts = make(map[string]int, len(f.state.Counts))
	for k, v := range f.state.Counts {
		s.Counts[k] = v
	}
	return s
}

// FavoriteIDs implements the FavoriteIDs lookup used by search.
func (f *Favorites) FavoriteIDs() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[string]bool, len(f.state.Favorites))
	for _, r := range f.state.Favorites {
		ids[r.ID] = true
	}
	return ids
}

func (f *Favorites) IsFavorite(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexLocked(id) >= 0
}

func (f *Favorites) indexLocked(id string) int {
	for i, r := range f.state.Favorites {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// HandleAuthChange is the session listener. Signing in starts from fresh
// search and favorite state and loads the favorites; signing out clears
// favorites, results and criteria.
func (f *Favorites) HandleAuthChange(ctx context.Context, state SessionState) {
	f.mu.Lock()
	f.epoch++
	f.state = FavoritesState{Counts: map[string]int{}}
	f.pending = map[string]bool{}
	f.mu.Unlock()

	if f.search != nil {
		f.search.Reset()
	}
	if !state.Authenticated {
		return
	}
	if err := f.FetchFavorites(ctx); err != nil {
		f.logger.Warn("Failed to load favorites after sign-in", zap.Error(err))
	}
}

// FetchFavorites reloads the favorite set. Without a session it does nothing.
func (f *Favorites) FetchFavorites(ctx context.Context) error {
	apiKey := f.tokens.APIKey()
	if apiKey == "" {
		return nil
	}

	f.mu.Lock()
	epoch := f.epoch
	f.state.Loading = true
	f.mu.Unlock()

	list, err := f.backend.Favorites(ctx, apiKey)

	f.mu.Lock()
	if epoch != f.epoch {
		f.mu.Unlock()
		f.logger.Debug("Dropping favorites from a previous session")
		return nil
	}
	f.state.Loading = false
	if err != nil {
		f.state.Error = Message(err, "Failed to load favorites")
		f.mu.Unlock()
		f.logger.Warn("Error fetching favorites", zap.Error(err))
		return err
	}
	f.state.Error = ""
	f.state.Favorites = dedupe(list)
	f.mu.Unlock()

	f.reannotate(ctx)
	return nil
}

// reannotate refreshes favorite flags and counts on the current results.
func (f *Favorites) reannotate(ctx context.Context) {
	if f.search == nil {
		return
	}
	ids := f.search.ResultIDs()
	if len(ids) == 0 {
		return
	}

	favIDs := f.FavoriteIDs()
	counts, err := f.backend.FavoriteCounts(ctx, ids)
	if err != nil {
		f.logger.Warn("Error fetching favorite counts", zap.Error(err))
	}
	f.search.UpdateResults(func(r *Result) {
		r.IsFavorite = favIDs[r.ID]
		if err == nil {
			r.FavoriteCount = counts[r.ID]
		}
	})
}

// ToggleFavorite adds or removes r. The local set changes only after the
// backend confirms; a second toggle of the same restaurant while one is in
// flight is ignored.
func (f *Favorites) ToggleFavorite(ctx context.Context, r models.Restaurant) error {
	apiKey := f.tokens.APIKey()
	if apiKey == "" {
		err := &AuthRequiredError{Message: "Please log in to save favorites"}
		f.setError(err.Message)
		loginRedirect(f.tokens, f.nav, err.Message)
		return err
	}

	f.mu.Lock()
	if f.pending[r.ID] {
		f.mu.Unlock()
		f.logger.Debug("Favorite toggle already in flight", zap.String("restaurant_id", r.ID))
		return nil
	}
	f.pending[r.ID] = true
	epoch := f.epoch
	wasFavorite := f.indexLocked(r.ID) >= 0
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.pending, r.ID)
		f.mu.Unlock()
	}()

	var err error
	if wasFavorite {
		err = f.backend.RemoveFavorite(ctx, apiKey, r.ID)
	} else {
		err = f.backend.AddFavorite(ctx, apiKey, r)
	}
	if err != nil {
		f.logger.Warn("Error updating favorites", zap.String("restaurant_id", r.ID), zap.Error(err))
		f.setError("Failed to update favorites")
		return err
	}

	f.mu.Lock()
	if epoch != f.epoch {
		f.mu.Unlock()
		return nil
	}
	if wasFavorite {
		if i := f.indexLocked(r.ID); i >= 0 {
			f.state.Favorites = append(f.state.Favorites[:i], f.state.Favorites[i+1:]...)
		}
	} else if f.indexLocked(r.ID) < 0 {
		f.state.Favorites = append(f.state.Favorites, r)
	}
	f.state.Error = ""
	f.mu.Unlock()

	count := f.refreshCount(ctx, r.ID, !wasFavorite)
	if f.search != nil {
		f.search.UpdateResult(r.ID, func(res *Result) {
			res.IsFavorite = !wasFavorite
			res.FavoriteCount = count
		})
	}
	return nil
}

// refreshCount asks the server for id's count. If that fails the last
// known count moves by one, never below zero.
func (f *Favorites) refreshCount(ctx context.Context, id string, added bool) int {
	counts, err := f.backend.FavoriteCounts(ctx, []string{id})
	if err == nil {
		f.mu.Lock()
		f.state.Counts[id] = counts[id]
		f.mu.Unlock()
		return counts[id]
	}
	f.logger.Warn("Error fetching favorite counts", zap.String("restaurant_id", id), zap.Error(err))

	f.mu.Lock()
	defer f.mu.Unlock()
	known, ok := f.state.Counts[id]
	if !ok && f.search != nil {
		if res, found := f.search.Result(id); found {
			known = res.FavoriteCount
		}
	}
	if added {
		known++
	} else if known > 0 {
		known--
	}
	f.state.Counts[id] = known
	return known
}

// FavoriteCounts loads counts for the favorite set, for the favorites page.
func (f *Favorites) FavoriteCounts(ctx context.Context) (map[string]int, error) {
	f.mu.Lock()
	ids := make([]string, 0, len(f.state.Favorites))
	for _, r := range f.state.Favorites {
		ids = append(ids, r.ID)
	}
	f.mu.Unlock()

	if len(ids) == 0 {
		return map[string]int{}, nil
	}
	counts, err := f.backend.FavoriteCounts(ctx, ids)
	if err != nil {
		f.logger.Warn("Error fetching favorite counts", zap.Error(err))
		return nil, err
	}

	f.mu.Lock()
	for _, id := range ids {
		f.state.Counts[id] = counts[id]
	}
	f.mu.Unlock()
	return counts, nil
}

func (f *Favorites) setError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Error = msg
}

// dedupe keeps the first occurrence of every id.
func dedupe(list []models.Restaurant) []models.Restaurant {
	seen := make(map[string]bool, len(list))
	out := make([]models.Restaurant, 0, len(list))
	for _, r := range list {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}
