// Package client is the terminal client's state layer: session, search,
// favorites and comment panels over the restaurant-finder HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"restaurant-finder/models"
)

// Backend is the restaurant-finder API as seen by the managers.
type Backend interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, email, password string) (*models.AuthResponse, error)
	ChangePassword(ctx context.Context, email, newPassword, apiKey string) error
	Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResponse, error)
	Favorites(ctx context.Context, apiKey string) ([]models.Restaurant, error)
	AddFavorite(ctx context.Context, apiKey string, restaurant models.Restaurant) error
	RemoveFavorite(ctx context.Context, apiKey, restaurantID string) error
	FavoriteCounts(ctx context.Context, ids []string) (map[string]int, error)
	Comments(ctx context.Context, restaurantID string) ([]models.Comment, error)
	PostComment(ctx context.Context, apiKey, restaurantID, content string) (*models.Comment, error)
}

// API talks JSON over HTTP to the restaurant-finder server.
type API struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPI creates an API client. A zero timeout leaves the http.Client default.
func NewAPI(baseURL string, timeout time.Duration) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (a *API) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := a.do(ctx, http.MethodGet, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Register(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := a.do(ctx, http.MethodPost, "/api/register", map[string]string{
		"email":    email,
		"password": password,
	}, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ChangePassword(ctx context.Context, email, newPassword, apiKey string) error {
	return a.do(ctx, http.MethodPut, "/api/change_password", map[string]string{
		"email":       email,
		"newPassword": newPassword,
		"apiKey":      apiKey,
	}, nil, nil)
}

func (a *API) Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResponse, error) {
	var out models.SearchResponse
	if err := a.do(ctx, http.MethodPost, "/api/search", nil, criteria, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Favorites(ctx context.Context, apiKey string) ([]models.Restaurant, error) {
	var out models.FavoritesResponse
	if err := a.do(ctx, http.MethodGet, "/api/favorites", apiKeyHeader(apiKey), nil, &out); err != nil {
		return nil, err
	}
	return out.Favorites, nil
}

func (a *API) AddFavorite(ctx context.Context, apiKey string, restaurant models.Restaurant) error {
	return a.do(ctx, http.MethodPost, "/api/favorites", apiKeyHeader(apiKey), restaurant, nil)
}

func (a *API) RemoveFavorite(ctx context.Context, apiKey, restaurantID string) error {
	return a.do(ctx, http.MethodDelete, "/api/favorites/"+url.PathEscape(restaurantID), apiKeyHeader(apiKey), nil, nil)
}

func (a *API) FavoriteCounts(ctx context.Context, ids []string) (map[string]int, error) {
	if ids == nil {
		ids = []string{}
	}
	var out models.CountsResponse
	if err := a.do(ctx, http.MethodPost, "/api/favorites/counts", nil, ids, &out); err != nil {
		return nil, err
	}
	if out.Counts == nil {
		out.Counts = map[string]int{}
	}
	return out.Counts, nil
}

func (a *API) Comments(ctx context.Context, restaurantID string) ([]models.Comment, error) {
	var out models.CommentsResponse
	if err := a.do(ctx, http.MethodGet, "/api/comments/"+url.PathEscape(restaurantID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (a *API) PostComment(ctx context.Context, apiKey, restaurantID, content string) (*models.Comment, error) {
	var out models.Comment
	err := a.do(ctx, http.MethodPost, "/api/comments/"+url.PathEscape(restaurantID), apiKeyHeader(apiKey),
		models.CreateCommentRequest{Content: content}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func apiKeyHeader(apiKey string) map[string]string {
	return map[string]string{"apiKey": apiKey}
}

// do sends one request. Transport failures become NetworkError and non-2xx
// answers become BackendError.
func (a *API) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &BackendError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage pulls a human message out of an error body. It accepts the
// server's {"Code": ..., "Message": "..."} as well as {"detail": "..."},
// {"error": "..."}, {"message": "..."} and an "error" object carrying its
// own message.
func errorMessage(data []byte) string {
	var body map[string]any
	if json.Unmarshal(data, &body) != nil {
		return ""
	}
	for _, key := range []string{"Message", "detail", "error", "message"} {
		switch v := body[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			for _, inner := range []string{"message", "Message"} {
				if msg, ok := v[inner].(string); ok && msg != "" {
					return msg
				}
			}
		}
	}
	return ""
}
