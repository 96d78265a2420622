package client

import (
	"context"
	"strings"
	"sync"

	"restaurant-finder/models"

	"go.uber.org/zap"
)

// CommentPanel is the state of one restaurant's comment section.
type CommentPanel struct {
	Open       bool
	Comments   []models.Comment
	Loading    bool
	Submitting bool
	Draft      string
	Error      string
}

// Comments controls the per-restaurant comment panels. Panel errors stay
// local to the panel.
type Comments struct {
	mu     sync.Mutex
	panels map[string]*CommentPanel

	backend Backend
	tokens  TokenSource
	search  *SearchManager
	nav     Navigator
	logger  *zap.Logger
}

func NewComments(backend Backend, tokens TokenSource, search *SearchManager, nav Navigator, logger *zap.Logger) *Comments {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comments{
		panels:  map[string]*CommentPanel{},
		backend: backend,
		tokens:  tokens,
		search:  search,
		nav:     nav,
		logger:  logger,
	}
}

func (c *Comments) panelLocked(id string) *CommentPanel {
	p, ok := c.panels[id]
	if !ok {
		p = &CommentPanel{}
		c.panels[id] = p
	}
	return p
}

// Panel returns a copy of the panel for id.
func (c *Comments) Panel(id string) CommentPanel {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := *c.panelLocked(id)
	p.Comments = append([]models.Comment(nil), p.Comments...)
	return p
}

// ToggleComments opens or closes the panel for id and returns the new state.
// It does not fetch; callers load the list once the panel is open.
func (c *Comments) ToggleComments(id string) bool {
	c.mu.Lock()
	p := c.panelLocked(id)
	p.Open = !p.Open
	open := p.Open
	c.mu.Unlock()

	if c.search != nil {
		c.search.UpdateResult(id, func(r *Result) { r.ShowComments = open })
	}
	return open
}

func (c *Comments) SetDraft(id, draft string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panelLocked(id).Draft = draft
}

// FetchComments loads the list for id in server order (newest first).
// On failure the list is emptied and the panel shows an error.
func (c *Comments) FetchComments(ctx context.Context, id string) error {
	c.mu.Lock()
	c.panelLocked(id).Loading = true
	c.mu.Unlock()

	list, err := c.backend.Comments(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.panelLocked(id)
	p.Loading = false
	if err != nil {
		c.logger.Warn("Error fetching comments", zap.String("restaurant_id", id), zap.Error(err))
		p.Error = "Failed to load comments"
		p.Comments = nil
		return err
	}
	p.Error = ""
	p.Comments = list
	return nil
}

// PostComment adds content to id's thread. Signed-out users are sent to the
// login page and blank content is rejected; neither makes a request.
func (c *Comments) PostComment(ctx context.Context, id, content string) (*models.Comment, error) {
	apiKey := c.tokens.APIKey()
	if apiKey == "" {
		err := &AuthRequiredError{Message: "Please log in to comment"}
		loginRedirect(c.tokens, c.nav, err.Message)
		return nil, err
	}

	if strings.TrimSpace(content) == "" {
		err := &ValidationError{Message: "Comment cannot be empty"}
		c.mu.Lock()
		c.panelLocked(id).Error = err.Message
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.panelLocked(id).Submitting = true
	c.mu.Unlock()

	comment, err := c.backend.PostComment(ctx, apiKey, id, content)

	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.panelLocked(id)
	p.Submitting = false
	if err != nil {
		c.logger.Warn("Error posting comment", zap.String("restaurant_id", id), zap.Error(err))
		p.Error = "Failed to post comment"
		return nil, err
	}
	p.Comments = append([]models.Comment{*comment}, p.Comments...)
	p.Draft = ""
	p.Error = ""
	return comment, nil
}

// Reset closes and forgets every panel.
func (c *Comments) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panels = map[string]*CommentPanel{}
}
