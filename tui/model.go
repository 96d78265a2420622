// Package tui is the terminal front end: search form, filters, result
// cards with comment panels, and the login, register, account and
// favorites pages.
package tui

import (
	"context"
	"strconv"

	"restaurant-finder/client"
	"restaurant-finder/router"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Operations reported back through opDoneMsg.
const (
	opSearch         = "search"
	opLogin          = "login"
	opRegister       = "register"
	opChangePassword = "change_password"
	opToggleFavorite = "toggle_favorite"
	opLoadFavorites  = "load_favorites"
	opLoadComments   = "load_comments"
	opPostComment    = "post_comment"
	opLogout         = "logout"
)

// opDoneMsg is sent when a manager call started by the UI returns.
type opDoneMsg struct {
	op  string
	id  string
	err error
}

// Model is the root bubbletea model. All durable state lives in the client
// managers; the model keeps only cursor, focus and input widgets.
type Model struct {
	ctx    context.Context
	app    *client.App
	styles Styles

	page    string
	form    []textinput.Model
	focus   int
	cursor  int
	attr    int
	spinner spinner.Model

	commenting bool
	comment    textinput.Model

	width  int
	height int
}

// New builds the model on top of app, which should already be started.
func New(ctx context.Context, app *client.App) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = DefaultStyles().Title

	ci := textinput.New()
	ci.Placeholder = "Leave a comment..."
	ci.CharLimit = 500
	ci.Width = 60

	m := Model{
		ctx:     ctx,
		app:     app,
		styles:  DefaultStyles(),
		spinner: sp,
		comment: ci,
		width:   100,
		height:  40,
	}
	m.enter(app.History.Current())
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Page reports the page currently shown.
func (m Model) Page() string {
	return m.page
}

func newInput(placeholder string, password bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 120
	ti.Width = 40
	if password {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

// enter switches to page and rebuilds its form.
func (m *Model) enter(page string) tea.Cmd {
	m.page = page
	m.focus = 0
	m.cursor = 0
	m.commenting = false
	m.comment.Blur()

	switch page {
	case router.Home:
		c := m.app.Search.Criteria()
		term := newInput("Search term (pizza, ramen, ...)", false)
		term.SetValue(c.Term)
		loc := newInput("Location (Boston, MA)", false)
		loc.SetValue(c.Location)
		m.form = []textinput.Model{term, loc}
	case router.Login:
		email := newInput("Email", false)
		email.SetValue(m.app.Session.Snapshot().Form.Email)
		m.form = []textinput.Model{email, newInput("Password", true)}
	case router.Register:
		m.form = []textinput.Model{
			newInput("Email", false),
			newInput("Password", true),
			newInput("Confirm password", true),
		}
	case router.Account:
		m.form = []textinput.Model{
			newInput("New password", true),
			newInput("Confirm new password", true),
		}
	case router.Favorite:
		m.form = nil
		m.focusForm()
		return m.loadFavorites()
	default:
		m.form = nil
	}
	m.focusForm()
	return nil
}

// focusForm gives keyboard focus to form[focus]; focus past the form means
// the result list.
func (m *Model) focusForm() {
	for i := range m.form {
		if i == m.focus {
			m.form[i].Focus()
		} else {
			m.form[i].Blur()
		}
	}
}

func (m Model) onResults() bool {
	return m.focus >= len(m.form)
}

// syncPage follows navigation done by the managers, e.g. a redirect to the
// login page or home after signing in.
func (m *Model) syncPage() tea.Cmd {
	if current := m.app.History.Current(); current != m.page {
		return m.enter(current)
	}
	return nil
}

func (m *Model) navigate(item string) tea.Cmd {
	if item == router.MenuLogout {
		return m.run(opLogout, "", func(ctx context.Context) error {
			return m.app.Session.Logout(ctx)
		})
	}
	_, err := m.app.Navigate(m.ctx, item)
	m.app.Session.ClearMessages()
	if err != nil {
		m.app.Session.SetError(client.Message(err, "Navigation failed"))
	}
	return m.syncPage()
}

// run executes fn off the UI loop and reports back with opDoneMsg.
func (m *Model) run(op, id string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, id: id, err: fn(ctx)}
	}
}

func (m *Model) loadFavorites() tea.Cmd {
	return m.run(opLoadFavorites, "", func(ctx context.Context) error {
		if err := m.app.Favorites.FetchFavorites(ctx); err != nil {
			return err
		}
		_, err := m.app.Favorites.FavoriteCounts(ctx)
		return err
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case opDoneMsg:
		cmd := m.handleDone(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleDone(msg opDoneMsg) tea.Cmd {
	switch msg.op {
	case opLogin, opRegister, opChangePassword:
		// the session clears inputs on failure; mirror that
		if m.page == router.Login || m.page == router.Register || m.page == router.Account {
			form := m.app.Session.Snapshot().Form
			if msg.op == opChangePassword {
				m.setValues(form.Password, form.Confirm)
			} else {
				m.setValues(form.Email, form.Password, form.Confirm)
			}
		}
	case opPostComment:
		if msg.err == nil {
			m.comment.SetValue("")
			m.commenting = false
			m.comment.Blur()
		}
	case opToggleFavorite:
		if m.page == router.Favorite {
			favs := m.app.Favorites.Snapshot().Favorites
			if m.cursor >= len(favs) && m.cursor > 0 {
				m.cursor = len(favs) - 1
			}
		}
	}
	return m.syncPage()
}

func (m *Model) setValues(values ...string) {
	for i := range m.form {
		if i < len(values) {
			m.form[i].SetValue(values[i])
		}
	}
}

// menuKeys maps function keys to header menu items.
var menuKeys = map[string]string{
	"f1": "",
	"f2": "login",
	"f3": "register",
	"f4": "account",
	"f5": "favorite",
	"f6": router.MenuLogout,
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if item, ok := menuKeys[msg.String()]; ok {
		cmd := m.navigate(item)
		return m, cmd
	}

	if m.commenting {
		return m.handleCommentKey(msg)
	}

	switch msg.String() {
	case "tab", "shift+tab":
		stops := len(m.form)
		if m.page == router.Home {
			stops++
		}
		if stops == 0 {
			return m, nil
		}
		if msg.String() == "tab" {
			m.focus = (m.focus + 1) % stops
		} else {
			m.focus = (m.focus + stops - 1) % stops
		}
		m.focusForm()
		return m, nil
	case "enter":
		if !m.onResults() || m.page == router.Home {
			cmd := m.submit()
			return m, cmd
		}
	}

	switch m.page {
	case router.Home:
		if m.onResults() {
			cmd := m.handleResultKey(msg)
			return m, cmd
		}
	case router.Favorite:
		cmd := m.handleFavoriteKey(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

// updateFocused feeds msg to the focused input and mirrors search inputs
// into the criteria.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.commenting {
		var cmd tea.Cmd
		m.comment, cmd = m.comment.Update(msg)
		return m, cmd
	}
	if m.onResults() {
		return m, nil
	}

	var cmd tea.Cmd
	m.form[m.focus], cmd = m.form[m.focus].Update(msg)

	if m.page == router.Home {
		field := client.FieldTerm
		if m.focus == 1 {
			field = client.FieldLocation
		}
		m.app.Search.UpdateCriteria(field, m.form[m.focus].Value())
	}
	return m, cmd
}

func (m *Model) value(i int) string {
	if i < len(m.form) {
		return m.form[i].Value()
	}
	return ""
}

// submit runs the page's primary action.
func (m *Model) submit() tea.Cmd {
	switch m.page {
	case router.Home:
		m.cursor = 0
		return m.run(opSearch, "", m.app.Search.Search)
	case router.Login:
		email, password := m.value(0), m.value(1)
		return m.run(opLogin, "", func(ctx context.Context) error {
			return m.app.Session.Login(ctx, email, password)
		})
	case router.Register:
		email, password, confirm := m.value(0), m.value(1), m.value(2)
		return m.run(opRegister, "", func(ctx context.Context) error {
			return m.app.Session.Register(ctx, email, password, confirm)
		})
	case router.Account:
		password, confirm := m.value(0), m.value(1)
		return m.run(opChangePassword, "", func(ctx context.Context) error {
			return m.app.Session.ChangePassword(ctx, password, confirm)
		})
	}
	return nil
}

func (m *Model) selected() (client.Result, bool) {
	results := m.app.Search.Snapshot().Results
	if m.cursor < 0 || m.cursor >= len(results) {
		return client.Result{}, false
	}
	return results[m.cursor], true
}

func (m *Model) handleResultKey(msg tea.KeyMsg) tea.Cmd {
	search := m.app.Search
	key := msg.String()

	switch key {
	case "q", "esc":
		return tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(search.Snapshot().Results)-1 {
			m.cursor++
		}
	case "f":
		if r, ok := m.selected(); ok {
			return m.run(opToggleFavorite, r.ID, func(ctx context.Context) error {
				return m.app.Favorites.ToggleFavorite(ctx, r.Restaurant)
			})
		}
	case "c":
		if r, ok := m.selected(); ok {
			if m.app.Comments.ToggleComments(r.ID) {
				return m.run(opLoadComments, r.ID, func(ctx context.Context) error {
					return m.app.Comments.FetchComments(ctx, r.ID)
				})
			}
		}
	case "i":
		if r, ok := m.selected(); ok && r.ShowComments {
			m.commenting = true
			m.comment.SetValue(m.app.Comments.Panel(r.ID).Draft)
			return m.comment.Focus()
		}
	case "s":
		search.UpdateCriteria(client.FieldSortBy, nextString(client.SortOptions, search.Criteria().SortBy))
	case "l":
		search.UpdateCriteria(client.FieldLimit, strconv.Itoa(nextInt(client.LimitOptions, search.Criteria().Limit)))
	case "+", "=":
		search.UpdateCriteria(client.FieldRadius, client.FormatKm(min(search.RadiusKm()+0.5, 40)))
	case "-":
		search.UpdateCriteria(client.FieldRadius, client.FormatKm(max(search.RadiusKm()-0.5, 0.5)))
	case "1", "2", "3", "4":
		search.UpdateCriteria(client.FieldPrice, key)
	case "[":
		m.attr = (m.attr + len(client.Attributes) - 1) % len(client.Attributes)
	case "]":
		m.attr = (m.attr + 1) % len(client.Attributes)
	case "x":
		search.UpdateCriteria(client.FieldAttribute, client.Attributes[m.attr])
	}
	return m.syncPage()
}

func (m *Model) handleCommentKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r, ok := m.selected()
	switch msg.String() {
	case "esc":
		m.commenting = false
		m.comment.Blur()
		return *m, nil
	case "enter":
		if !ok {
			return *m, nil
		}
		content := m.comment.Value()
		return *m, m.run(opPostComment, r.ID, func(ctx context.Context) error {
			_, err := m.app.Comments.PostComment(ctx, r.ID, content)
			return err
		})
	}

	var cmd tea.Cmd
	m.comment, cmd = m.comment.Update(msg)
	if ok {
		m.app.Comments.SetDraft(r.ID, m.comment.Value())
	}
	return *m, cmd
}

func (m *Model) handleFavoriteKey(msg tea.KeyMsg) tea.Cmd {
	favs := m.app.Favorites.Snapshot().Favorites
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(favs)-1 {
			m.cursor++
		}
	case "f", "d":
		if m.cursor < len(favs) {
			r := favs[m.cursor]
			return m.run(opToggleFavorite, r.ID, func(ctx context.Context) error {
				return m.app.Favorites.ToggleFavorite(ctx, r)
			})
		}
	case "r":
		return m.loadFavorites()
	case "q", "esc":
		return tea.Quit
	}
	return nil
}

func nextString(options []string, current string) string {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func nextInt(options []int, current int) int {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}
