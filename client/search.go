package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"restaurant-finder/models"

	"go.uber.org/zap"
)

// Result is a search hit with the client's own annotations merged in.
type Result struct {
	models.Restaurant
	IsFavorite    bool
	FavoriteCount int
	ShowComments  bool
}

// SearchState is a snapshot of the search page.
type SearchState struct {
	Criteria    models.SearchCriteria
	Results     []Result
	Total       int
	Loading     bool
	HasSearched bool
	Error       string
}

// FavoriteIDs reports the ids currently in the favorite set.
type FavoriteIDs interface {
	FavoriteIDs() map[string]bool
}

// SearchManager owns the criteria and the result list.
//
// Every Search and Reset bumps a generation counter; a response is applied
// only if no newer search or reset happened while it was in flight.
type SearchManager struct {
	mu         sync.Mutex
	state      SearchState
	generation uint64

	backend   Backend
	favorites FavoriteIDs
	logger    *zap.Logger

	listeners map[int]func(SearchState)
	nextID    int
}

func NewSearchManager(backend Backend, logger *zap.Logger) *SearchManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchManager{
		state:     SearchState{Criteria: DefaultCriteria()},
		backend:   backend,
		logger:    logger,
		listeners: map[int]func(SearchState){},
	}
}

// UseFavorites sets where Search reads favorite ids from.
func (m *SearchManager) UseFavorites(f FavoriteIDs) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites = f
}

// Subscribe registers fn to receive a snapshot after every state change.
func (m *SearchManager) Subscribe(fn func(SearchState)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Snapshot returns a copy of the current state.
func (m *SearchManager) Snapshot() SearchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *SearchManager) snapshotLocked() SearchState {
	s := m.state
	s.Results = append([]Result(nil), m.state.Results...)
	return s
}

func (m *SearchManager) Criteria() models.SearchCriteria {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Criteria
}

// UpdateCriteria sets one criteria field from form input.
// "price" and "attribute" toggle a token in their comma list, "radius" takes
// kilometers and "limit" an integer. Other fields are stored verbatim.
func (m *SearchManager) UpdateCriteria(field, value string) error {
	m.mu.Lock()
	c := &m.state.Criteria
	switch field {
	case FieldTerm:
		c.Term = value
	case FieldLocation:
		c.Location = value
	case FieldSortBy:
		c.SortBy = value
	case FieldPrice:
		c.Price = toggleToken(c.Price, value)
	case FieldAttribute:
		c.Attributes = toggleToken(c.Attributes, value)
	case FieldRadius:
		km, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || km < 0 {
			m.mu.Unlock()
			return &ValidationError{Message: fmt.Sprintf("Invalid radius %q", value)}
		}
		c.Radius = KmToMeters(km)
	case FieldLimit:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			m.mu.Unlock()
			return &ValidationError{Message: fmt.Sprintf("Invalid limit %q", value)}
		}
		c.Limit = n
	default:
		m.mu.Unlock()
		return &ValidationError{Message: fmt.Sprintf("Unknown search field %q", field)}
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

// SetCriteria replaces the whole criteria object.
func (m *SearchManager) SetCriteria(c models.SearchCriteria) {
	m.mu.Lock()
	m.state.Criteria = c
	m.mu.Unlock()
	m.notify()
}

func (m *SearchManager) IsAttributeSelected(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return hasToken(m.state.Criteria.Attributes, token)
}

func (m *SearchManager) IsPriceSelected(tier string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return hasToken(m.state.Criteria.Price, tier)
}

// RadiusKm is the radius as the form shows it; unset shows DefaultRadiusKm.
func (m *SearchManager) RadiusKm() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Criteria.Radius == 0 {
		return DefaultRadiusKm
	}
	return MetersToKm(m.state.Criteria.Radius)
}

// Search runs the current criteria against the backend, marks favorites and
// merges favorite counts. A counts failure is logged and otherwise ignored.
func (m *SearchManager) Search(ctx context.Context) error {
	m.mu.Lock()
	criteria := m.state.Criteria
	if criteria.Term == "" || criteria.Location == "" {
		err := &ValidationError{Message: "Both a search term and location are required"}
		m.state.Error = err.Message
		m.mu.Unlock()
		m.notify()
		return err
	}
	m.generation++
	gen := m.generation
	m.state.Loading = true
	m.state.Error = ""
	m.state.HasSearched = true
	favorites := m.favorites
	m.mu.Unlock()
	m.notify()

	m.logger.Debug("Searching", zap.String("term", criteria.Term), zap.String("location", criteria.Location))

	resp, err := m.backend.Search(ctx, criteria)
	if err != nil {
		m.logger.Warn("Search failed", zap.Error(err))
		if m.apply(gen, func(s *SearchState) {
			s.Error = Message(err, "Failed to fetch results")
		}) {
			return err
		}
		return nil
	}

	var favIDs map[string]bool
	if favorites != nil {
		favIDs = favorites.FavoriteIDs()
	}
	results := make([]Result, 0, len(resp.Businesses))
	ids := make([]string, 0, len(resp.Businesses))
	for _, b := range resp.Businesses {
		results = append(results, Result{Restaurant: b, IsFavorite: favIDs[b.ID]})
		ids = append(ids, b.ID)
	}

	if len(ids) > 0 {
		counts, err := m.backend.FavoriteCounts(ctx, ids)
		if err != nil {
			m.logger.Warn("Error fetching favorite counts", zap.Error(err))
		} else {
			for i := range results {
				results[i].FavoriteCount = counts[results[i].ID]
			}
		}
	}

	m.apply(gen, func(s *SearchState) {
		s.Results = results
		s.Total = resp.Total
	})
	return nil
}

// apply runs fn and clears loading if gen is still current. It reports
// whether the update was applied.
func (m *SearchManager) apply(gen uint64, fn func(*SearchState)) bool {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		m.logger.Debug("Dropping stale search response", zap.Uint64("generation", gen))
		return false
	}
	fn(&m.state)
	m.state.Loading = false
	m.mu.Unlock()
	m.notify()
	return true
}

// Reset restores default criteria and drops results. Searches still in
// flight are discarded when they return. HasSearched is kept.
func (m *SearchManager) Reset() {
	m.mu.Lock()
	m.generation++
	m.state.Criteria = DefaultCriteria()
	m.state.Results = nil
	m.state.Total = 0
	m.state.Loading = false
	m.state.Error = ""
	m.mu.Unlock()
	m.notify()
}

// SetError puts msg on the search page's message line.
func (m *SearchManager) SetError(msg string) {
	m.mu.Lock()
	m.state.Error = msg
	m.mu.Unlock()
	m.notify()
}

// ResultIDs lists the ids of the current results in order.
func (m *SearchManager) ResultIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.state.Results))
	for _, r := range m.state.Results {
		ids = append(ids, r.ID)
	}
	return ids
}

// Result returns the current result with id.
func (m *SearchManager) Result(id string) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.state.Results {
		if r.ID == id {
			return r, true
		}
	}
	return Result{}, false
}

// UpdateResult applies fn to the result with id and reports whether it exists.
func (m *SearchManager) UpdateResult(id string, fn func(*Result)) bool {
	m.mu.Lock()
	found := false
	for i := range m.state.Results {
		if m.state.Results[i].ID == id {
			fn(&m.state.Results[i])
			found = true
			break
		}
	}
	m.mu.Unlock()
	if found {
		m.notify()
	}
	return found
}

// UpdateResults applies fn to every result.
func (m *SearchManager) UpdateResults(fn func(*Result)) {
	m.mu.Lock()
	for i := range m.state.Results {
		fn(&m.state.Results[i])
	}
	m.mu.Unlock()
	m.notify()
}

func (m *SearchManager) notify() {
	m.mu.Lock()
	state := m.snapshotLocked()
	listeners := make([]func(SearchState), 0, len(m.listeners))
	for i := 0; i < m.nextID; i++ {
		if fn, ok := m.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
