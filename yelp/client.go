// Package yelp is a small client for the Yelp Fusion business endpoints the
// backend proxies.
package yelp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"restaurant-finder/models"
)

// DefaultCategories narrows searches to places that serve food.
const DefaultCategories = "restaurants,food"

// Client calls the Yelp Fusion API with a bearer key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client. A zero timeout leaves the http.Client default.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx answer from Yelp.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("yelp: %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("yelp: unexpected status %d", e.StatusCode)
}

// Search runs /businesses/search for the given criteria.
func (c *Client) Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResponse, error) {
	var out models.SearchResponse
	if err := c.get(ctx, "/businesses/search", SearchParams(criteria), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Business fetches a single business by id or alias.
func (c *Client) Business(ctx context.Context, id string) (*models.Restaurant, error) {
	var out models.Restaurant
	if err := c.get(ctx, "/businesses/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchParams maps criteria onto Yelp query parameters, skipping empty ones.
func SearchParams(criteria models.SearchCriteria) url.Values {
	params := url.Values{}
	params.Set("term", criteria.Term)
	params.Set("categories", DefaultCategories)
	if criteria.Location != "" {
		params.Set("location", criteria.Location)
	}
	if criteria.Limit > 0 {
		params.Set("limit", strconv.Itoa(criteria.Limit))
	}
	if criteria.Radius > 0 {
		params.Set("radius", strconv.Itoa(criteria.Radius))
	}
	if criteria.Price != "" {
		params.Set("price", criteria.Price)
	}
	if criteria.SortBy != "" {
		params.Set("sort_by", criteria.SortBy)
	}
	if criteria.Attributes != "" {
		params.Set("attributes", criteria.Attributes)
	}
	return params
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("yelp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("yelp: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yelp: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Description = envelope.Error.Description
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("yelp: decode response: %w", err)
	}
	return nil
}
