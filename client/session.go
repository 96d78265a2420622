package client

import (
	"context"
	"strings"
	"sync"

	"restaurant-finder/router"

	"go.uber.org/zap"
)

// Navigator moves the client to a page and reports where it landed.
type Navigator interface {
	Navigate(path string) string
}

// Form mirrors the auth form inputs the session clears on failure.
type Form struct {
	Email    string
	Password string
	Confirm  string
}

// SessionState is a snapshot of the session for views.
type SessionState struct {
	Credentials
	Authenticated bool
	Form          Form
	Error         string
	Status        string
}

// AuthListener runs after every sign-in or sign-out, outside the session lock.
type AuthListener func(ctx context.Context, state SessionState)

// Session owns identity and credentials. The password only ever lives in
// the form and is never persisted.
type Session struct {
	mu      sync.Mutex
	state   SessionState
	backend Backend
	storage Storage
	nav     Navigator
	logger  *zap.Logger

	listeners map[int]AuthListener
	nextID    int
}

func NewSession(backend Backend, storage Storage, nav Navigator, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		backend:   backend,
		storage:   storage,
		nav:       nav,
		logger:    logger,
		listeners: map[int]AuthListener{},
	}
}

// Subscribe registers fn for auth transitions and returns a function that
// removes it.
func (s *Session) Subscribe(fn AuthListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Authenticated
}

// APIKey returns the current token, empty when signed out.
func (s *Session) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.APIKey
}

// SetForm replaces the form inputs.
func (s *Session) SetForm(f Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Form = f
}

// SetError puts msg on the session's message line.
func (s *Session) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = msg
	s.state.Status = ""
}

func (s *Session) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = ""
	s.state.Status = ""
}

// Restore re-reads persisted credentials. A stored api key signs the user in.
func (s *Session) Restore(ctx context.Context) error {
	creds, err := s.storage.Load()
	if err != nil {
		return err
	}
	if creds.APIKey == "" {
		return nil
	}

	s.mu.Lock()
	s.state = SessionState{
		Credentials:   creds,
		Authenticated: true,
		Form:          Form{Email: creds.Email},
	}
	s.mu.Unlock()

	s.logger.Debug("Restored session", zap.String("username", creds.Username))
	s.notify(ctx)
	return nil
}

// Login signs in with email and password.
func (s *Session) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	s.begin(Form{Email: email, Password: password})

	if err := s.validate(email, password, nil); err != nil {
		return err
	}

	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", zap.String("email", email), zap.Error(err))
		s.mu.Lock()
		s.state.Error = Message(err, "Login failed")
		s.state.Form.Password = ""
		s.mu.Unlock()
		return err
	}

	s.signIn(ctx, Credentials{Username: resp.Username, Email: email, APIKey: resp.APIKey})
	return nil
}

// Register creates an account and signs in.
func (s *Session) Register(ctx context.Context, email, password, confirm string) error {
	email = strings.TrimSpace(email)
	s.begin(Form{Email: email, Password: password, Confirm: confirm})

	if err := s.validate(email, password, &confirm); err != nil {
		return err
	}

	resp, err := s.backend.Register(ctx, email, password)
	if err != nil {
		s.logger.Warn("Registration failed", zap.String("email", email), zap.Error(err))
		s.mu.Lock()
		s.state.Error = Message(err, "Failed to register")
		s.state.Username = ""
		s.state.Form = Form{}
		s.mu.Unlock()
		return err
	}

	s.signIn(ctx, Credentials{Username: resp.Username, Email: email, APIKey: resp.APIKey})
	return nil
}

// Logout forgets the session everywhere and returns home.
func (s *Session) Logout(ctx context.Context) error {
	err := s.storage.Clear()
	if err != nil {
		s.logger.Error("Failed to clear stored session", zap.Error(err))
	}

	s.mu.Lock()
	s.state = SessionState{}
	s.mu.Unlock()

	s.notify(ctx)
	s.navigate(router.Home)
	return err
}

// ChangePassword sets a new password for the signed-in account.
// Success is reported on Status, failures on Error.
func (s *Session) ChangePassword(ctx context.Context, newPassword, confirm string) error {
	s.mu.Lock()
	s.state.Error = ""
	s.state.Status = ""
	s.state.Form.Password = newPassword
	s.state.Form.Confirm = confirm
	apiKey := s.state.APIKey
	email := s.state.Email
	s.mu.Unlock()

	if apiKey == "" {
		err := &AuthRequiredError{Message: "Please log in to change your password"}
		s.SetError(err.Message)
		return err
	}
	if err := s.validatePasswords(newPassword, &confirm); err != nil {
		return err
	}

	if err := s.backend.ChangePassword(ctx, email, newPassword, apiKey); err != nil {
		s.logger.Warn("Password change failed", zap.Error(err))
		s.mu.Lock()
		s.state.Error = Message(err, "Failed to change password")
		// nothing cached to restore
		s.state.Form.Password = ""
		s.state.Form.Confirm = ""
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state.Status = "Password changed successfully"
	s.state.Form.Password = ""
	s.state.Form.Confirm = ""
	s.mu.Unlock()
	return nil
}

func (s *Session) begin(f Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Form = f
	s.state.Error = ""
	s.state.Status = ""
}

// validate checks the email then the passwords. confirm is nil for login.
func (s *Session) validate(email, password string, confirm *string) error {
	msg := ""
	switch {
	case email == "":
		msg = "Missing email"
	case !strings.Contains(email, "@"):
		msg = "Invalid email format"
	}
	if msg != "" {
		s.SetError(msg)
		return &ValidationError{Message: msg}
	}
	return s.validatePasswords(password, confirm)
}

// validatePasswords applies the password rules. Failures other than a
// missing confirmation clear both password inputs.
func (s *Session) validatePasswords(password string, confirm *string) error {
	msg, clearInputs := "", true
	switch {
	case password == "":
		msg = "Missing password"
	case len(password) < 8:
		msg = "Password must be at least 8 characters long."
	case confirm != nil && *confirm == "":
		msg, clearInputs = "Please confirm your password", false
	case confirm != nil && *confirm != password:
		msg = "Passwords do not match"
	default:
		return nil
	}

	s.mu.Lock()
	s.state.Error = msg
	if clearInputs {
		s.state.Form.Password = ""
		s.state.Form.Confirm = ""
	}
	s.mu.Unlock()
	return &ValidationError{Message: msg}
}

func (s *Session) signIn(ctx context.Context, creds Credentials) {
	if err := s.storage.Save(creds); err != nil {
		s.logger.Error("Failed to persist session", zap.Error(err))
	}

	s.mu.Lock()
	s.state = SessionState{
		Credentials:   creds,
		Authenticated: true,
		Form:          Form{Email: creds.Email},
	}
	s.mu.Unlock()

	s.logger.Info("Signed in", zap.String("username", creds.Username))
	s.notify(ctx)
	s.navigate(router.Home)
}

func (s *Session) notify(ctx context.Context) {
	s.mu.Lock()
	state := s.state
	listeners := make([]AuthListener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, state)
	}
}

func (s *Session) navigate(path string) {
	if s.nav != nil {
		s.nav.Navigate(path)
	}
}
