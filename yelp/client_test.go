package yelp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant-finder/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParams(t *testing.T) {
	params := SearchParams(models.SearchCriteria{
		Term:       "pizza",
		Location:   "Boston",
		Limit:      20,
		Radius:     5000,
		Price:      "1,2",
		SortBy:     "rating",
		Attributes: "wifi",
	})
	assert.Equal(t, "pizza", params.Get("term"))
	assert.Equal(t, "Boston", params.Get("location"))
	assert.Equal(t, "20", params.Get("limit"))
	assert.Equal(t, "5000", params.Get("radius"))
	assert.Equal(t, "1,2", params.Get("price"))
	assert.Equal(t, "rating", params.Get("sort_by"))
	assert.Equal(t, "wifi", params.Get("attributes"))
	assert.Equal(t, DefaultCategories, params.Get("categories"))
}

func TestSearchParams_SkipsEmpty(t *testing.T) {
	params := SearchParams(models.SearchCriteria{Term: "tacos"})
	for _, k := range []string{"location", "limit", "radius", "price", "sort_by", "attributes"} {
		_, present := params[k]
		assert.False(t, present, k)
	}
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/search", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "pizza", r.URL.Query().Get("term"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"businesses":[{"id":"a","name":"Regina"},{"id":"b","name":"Santarpio's"}],"total":2,"region":{"center":{"longitude":-71.05,"latitude":42.36}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	resp, err := c.Search(context.Background(), models.SearchCriteria{Term: "pizza", Location: "Boston"})
	require.NoError(t, err)
	require.Len(t, resp.Businesses, 2)
	assert.Equal(t, "Regina", resp.Businesses[0].Name)
	assert.Equal(t, 2, resp.Total)
	assert.InDelta(t, 42.36, resp.Region.Center.Latitude, 0.001)
}

func TestClient_Business(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/regina-pizzeria", r.URL.Path)
		w.Write([]byte(`{"id":"regina-pizzeria","name":"Regina","location":{"city":"Boston"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	r, err := c.Business(context.Background(), "regina-pizzeria")
	require.NoError(t, err)
	assert.Equal(t, "Boston", r.Location.City)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"LOCATION_NOT_FOUND","description":"Could not execute search"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	_, err := c.Search(context.Background(), models.SearchCriteria{Term: "x", Location: "nowhere"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "LOCATION_NOT_FOUND", apiErr.Code)
	assert.Contains(t, err.Error(), "Could not execute search")
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, "secret", time.Second)
	_, err := c.Business(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
