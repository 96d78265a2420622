package client

import (
	"context"

	"restaurant-finder/router"

	"go.uber.org/zap"
)

// App wires the managers together around one backend and one navigation
// history.
type App struct {
	Session   *Session
	Search    *SearchManager
	Favorites *Favorites
	Comments  *Comments
	History   *router.History
}

func NewApp(backend Backend, storage Storage, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := &App{}
	app.History = router.NewHistory(func() bool {
		return app.Session.Authenticated()
	})
	app.Session = NewSession(backend, storage, app.History, logger.Named("session"))
	app.Search = NewSearchManager(backend, logger.Named("search"))
	app.Favorites = NewFavorites(backend, app.Session, app.Search, app.History, logger.Named("favorites"))
	app.Comments = NewComments(backend, app.Session, app.Search, app.History, logger.Named("comments"))

	app.Search.UseFavorites(app.Favorites)
	app.Session.Subscribe(func(ctx context.Context, _ SessionState) {
		app.Comments.Reset()
	})
	app.Session.Subscribe(app.Favorites.HandleAuthChange)
	return app
}

// Start restores a persisted session, loading its favorites.
func (a *App) Start(ctx context.Context) error {
	return a.Session.Restore(ctx)
}

// Navigate follows a header menu item and returns the page shown.
// "logout" signs out first; the session is dropped even when the stored
// copy could not be removed, and that error is returned with the page.
func (a *App) Navigate(ctx context.Context, item string) (string, error) {
	if item == router.MenuLogout {
		err := a.Session.Logout(ctx)
		return a.History.Current(), err
	}
	return a.History.Navigate(router.MenuTarget(item, a.Session.Authenticated())), nil
}
