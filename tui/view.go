package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"restaurant-finder/client"
	"restaurant-finder/router"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var menu = []struct {
	key, label, page string
	private          bool
}{
	{"F1", "Home", router.Home, false},
	{"F2", "Login", router.Login, false},
	{"F3", "Register", router.Register, false},
	{"F4", "Account", router.Account, true},
	{"F5", "Favorites", router.Favorite, true},
	{"F6", "Logout", "", true},
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.page {
	case router.Home:
		b.WriteString(m.renderHome())
	case router.Login:
		b.WriteString(m.renderForm("Log in", []string{"Email", "Password"}, "enter: log in"))
	case router.Register:
		b.WriteString(m.renderForm("Create an account", []string{"Email", "Password", "Confirm"}, "enter: register"))
	case router.Account:
		b.WriteString(m.renderAccount())
	case router.Favorite:
		b.WriteString(m.renderFavorites())
	}
	return b.String()
}

func (m Model) renderHeader() string {
	authed := m.app.Session.Authenticated()
	items := []string{m.styles.Title.Render("Restaurant Finder")}
	for _, item := range menu {
		if item.private != authed && item.page != router.Home {
			continue
		}
		label := item.key + " " + item.label
		if item.page == m.page {
			items = append(items, m.styles.Active.Render(label))
		} else {
			items = append(items, m.styles.Menu.Render(label))
		}
	}
	if authed {
		items = append(items, m.styles.Muted.Render("signed in as "+m.app.Session.Snapshot().Username))
	}
	return strings.Join(items, "  ")
}

func (m Model) renderMessages(errMsg, status string) string {
	var out []string
	if errMsg != "" {
		out = append(out, m.styles.Error.Render(errMsg))
	}
	if status != "" {
		out = append(out, m.styles.Status.Render(status))
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

func (m Model) renderInputs(labels []string) string {
	var rows []string
	for i, label := range labels {
		if i >= len(m.form) {
			break
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			m.styles.Label.Render(label), m.form[i].View()))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderForm(title string, labels []string, hint string) string {
	state := m.app.Session.Snapshot()
	var b strings.Builder
	b.WriteString(m.styles.Header.Render(title))
	b.WriteString("\n")
	b.WriteString(m.renderInputs(labels))
	b.WriteString("\n\n")
	b.WriteString(m.renderMessages(state.Error, state.Status))
	b.WriteString(m.styles.Muted.Render("tab: next field  " + hint))
	return b.String()
}

func (m Model) renderAccount() string {
	state := m.app.Session.Snapshot()
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("Account"))
	b.WriteString("\n")
	b.WriteString(m.styles.Label.Render("Username") + state.Username + "\n")
	b.WriteString(m.styles.Label.Render("Email") + state.Email + "\n\n")
	b.WriteString(m.renderInputs([]string{"New", "Confirm"}))
	b.WriteString("\n\n")
	b.WriteString(m.renderMessages(state.Error, state.Status))
	b.WriteString(m.styles.Muted.Render("tab: next field  enter: change password"))
	return b.String()
}

func (m Model) renderFilters() string {
	search := m.app.Search
	c := search.Criteria()

	var prices []string
	for _, tier := range client.PriceTiers {
		n, _ := strconv.Atoi(tier)
		label := strings.Repeat("$", n)
		if search.IsPriceSelected(tier) {
			prices = append(prices, m.styles.Active.Render(label))
		} else {
			prices = append(prices, m.styles.Muted.Render(label))
		}
	}

	var attrs []string
	for i, a := range client.Attributes {
		label := a
		if search.IsAttributeSelected(a) {
			label = "[x] " + label
		} else {
			label = "[ ] " + label
		}
		if i == m.attr {
			attrs = append(attrs, m.styles.Active.Render(label))
		} else {
			attrs = append(attrs, m.styles.Muted.Render(label))
		}
	}

	lines := []string{
		fmt.Sprintf("%s %s   %s %d   %s %s km   %s %s",
			m.styles.Label.Render("Sort"), c.SortBy,
			"Limit", c.Limit,
			"Radius", client.FormatKm(search.RadiusKm()),
			"Price", strings.Join(prices, " ")),
		attrs[m.attr],
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHome() string {
	state := m.app.Search.Snapshot()
	var b strings.Builder

	b.WriteString(m.renderInputs([]string{"Term", "Location"}))
	b.WriteString("\n")
	b.WriteString(m.renderFilters())
	b.WriteString("\n\n")

	if fav := m.app.Favorites.Snapshot().Error; fav != "" {
		b.WriteString(m.styles.Error.Render(fav) + "\n")
	}
	if state.Error != "" {
		b.WriteString(m.styles.Error.Render(state.Error) + "\n")
	}

	switch {
	case state.Loading:
		b.WriteString(m.spinner.View() + " Searching...\n")
	case state.HasSearched && len(state.Results) == 0:
		b.WriteString(m.styles.Muted.Render("No results found") + "\n")
	}

	for i, r := range state.Results {
		b.WriteString(m.renderCard(r, m.onResults() && i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Muted.Render(
		"enter: search  tab: results  f: favorite  c: comments  i: write  s/l: sort/limit  +/-: radius  1-4: price  [ ] x: attributes  q: quit"))
	return b.String()
}

func (m Model) renderCard(r client.Result, selected bool) string {
	heart := "♡"
	if r.IsFavorite {
		heart = "♥"
	}

	var categories []string
	for _, c := range r.Categories {
		categories = append(categories, c.Title)
	}

	lines := []string{
		m.styles.Header.UnsetMarginBottom().Render(r.Name) + " " + m.styles.Heart.Render(heart),
		fmt.Sprintf("%.1f ★ (%d reviews) %s", r.Rating, r.ReviewCount, r.Price),
		m.styles.Muted.Render(strings.TrimSpace(r.Location.Address1 + ", " + r.Location.City)),
		m.styles.Muted.Render(strings.Join(categories, ", ")),
		m.styles.Heart.Render(client.FormatFavoriteCount(r.FavoriteCount)),
	}

	if r.ShowComments {
		lines = append(lines, m.renderComments(r.ID))
	}

	style := m.styles.Card
	if selected {
		style = m.styles.Selected
	}
	return style.Width(min(m.width-4, 90)).Render(strings.Join(lines, "\n"))
}

func (m Model) renderComments(id string) string {
	panel := m.app.Comments.Panel(id)
	var b strings.Builder

	if m.commenting {
		if r, ok := m.selected(); ok && r.ID == id {
			b.WriteString(m.comment.View() + "\n")
		}
	}
	if panel.Error != "" {
		b.WriteString(m.styles.Error.Render(panel.Error) + "\n")
	}
	switch {
	case panel.Loading:
		b.WriteString(m.spinner.View() + " Loading comments...")
	case len(panel.Comments) == 0:
		b.WriteString(m.styles.Muted.Render("No comments yet"))
	default:
		var rows []string
		for _, c := range panel.Comments {
			rows = append(rows, m.styles.Comment.Render(fmt.Sprintf("%s · %s\n%s",
				c.Username, client.FormatDate(c.CommentedAt, time.Local), c.Content)))
		}
		b.WriteString(strings.Join(rows, "\n"))
	}
	return b.String()
}

func (m Model) renderFavorites() string {
	state := m.app.Favorites.Snapshot()
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("Favorites"))
	b.WriteString("\n")
	b.WriteString(m.renderMessages(state.Error, ""))

	switch {
	case state.Loading:
		b.WriteString(m.spinner.View() + " Loading favorites...\n")
	case len(state.Favorites) == 0:
		b.WriteString(m.styles.Muted.Render("No favorites yet") + "\n")
	}

	for i, r := range state.Favorites {
		b.WriteString(m.renderCard(client.Result{
			Restaurant:    r,
			IsFavorite:    true,
			FavoriteCount: state.Counts[r.ID],
		}, i == m.cursor))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Muted.Render("up/down: move  f: remove  r: reload  q: quit"))
	return b.String()
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, app *client.App) error {
	p := tea.NewProgram(New(ctx, app), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
