// Package router holds the client's page routes and the guard that decides
// where a navigation actually lands.
package router

import (
	"strings"
	"sync"
)

// Page routes.
const (
	Home     = "/"
	Login    = "/login"
	Register = "/register"
	Account  = "/account"
	Favorite = "/favorite"
)

// MenuLogout is the menu item that signs out and returns home.
const MenuLogout = "logout"

var protected = map[string]bool{
	Account:  true,
	Favorite: true,
}

var public = map[string]bool{
	Home:     true,
	Login:    true,
	Register: true,
}

// Resolve applies the route guard. Protected pages need a session and fall
// back to the login page; unknown paths land on home when signed in and on
// login otherwise.
func Resolve(path string, authenticated bool) string {
	switch {
	case public[path]:
		return path
	case protected[path]:
		if authenticated {
			return path
		}
		return Login
	case authenticated:
		return Home
	default:
		return Login
	}
}

// MenuTarget maps a header menu item ("account", "favorite", "logout", ...)
// to the page it opens.
func MenuTarget(item string, authenticated bool) string {
	item = strings.Trim(item, "/")
	if item == MenuLogout {
		return Home
	}
	return Resolve("/"+item, authenticated)
}

// History is the client's navigation stack. Every path pushed through
// Navigate passes the guard first.
type History struct {
	mu            sync.Mutex
	stack         []string
	authenticated func() bool
	listeners     []func(path string)
}

// NewHistory starts at home. authenticated reports whether a session is
// present; nil means never.
func NewHistory(authenticated func() bool) *History {
	if authenticated == nil {
		authenticated = func() bool { return false }
	}
	return &History{
		stack:         []string{Home},
		authenticated: authenticated,
	}
}

// Navigate moves to path after the guard and returns where it landed.
func (h *History) Navigate(path string) string {
	target := Resolve(path, h.authenticated())

	h.mu.Lock()
	if h.stack[len(h.stack)-1] != target {
		h.stack = append(h.stack, target)
	}
	listeners := append([]func(string){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(target)
	}
	return target
}

// Back pops one page, staying on the first one.
func (h *History) Back() string {
	h.mu.Lock()
	if len(h.stack) > 1 {
		h.stack = h.stack[:len(h.stack)-1]
	}
	current := h.stack[len(h.stack)-1]
	h.mu.Unlock()

	// the previous page may have become protected since
	return h.Replace(current)
}

// Replace swaps the current page without growing the stack.
func (h *History) Replace(path string) string {
	target := Resolve(path, h.authenticated())

	h.mu.Lock()
	h.stack[len(h.stack)-1] = target
	listeners := append([]func(string){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(target)
	}
	return target
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stack[len(h.stack)-1]
}

// OnChange registers fn to run after every navigation.
func (h *History) OnChange(fn func(path string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}
