package gateways

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"Soundcheck/services/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, searchHandler http.HandlerFunc) (*SpotifyGateway, *int) {
	tokenCalls := 0
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "test-token", "expires_in": 3600}`)
	}))
	t.Cleanup(tokenServer.Close)

	searchServer := httptest.NewServer(searchHandler)
	t.Cleanup(searchServer.Close)

	gateway := NewSpotifyGateway("id", "secret")
	gateway.tokenURL = tokenServer.URL
	gateway.searchURL = searchServer.URL
	return gateway, &tokenCalls
}

func TestArtistImage(t *testing.T) {
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "Daft Punk", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"artists": {"items": [{"images": [{"url": "https://img.example/daft"}]}]}}`)
	})

	imageURL, err := gateway.ArtistImage(context.Background(), "Daft Punk")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/daft", imageURL)
}

func TestArtistImageTokenIsCached(t *testing.T) {
	gateway, tokenCalls := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"artists": {"items": [{"images": [{"url": "https://img.example/daft"}]}]}}`)
	})

	_, err := gateway.ArtistImage(context.Background(), "Daft Punk")
	require.NoError(t, err)
	_, err = gateway.ArtistImage(context.Background(), "Justice")
	require.NoError(t, err)

	assert.Equal(t, 1, *tokenCalls)
}

func TestArtistImageNoMatch(t *testing.T) {
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"artists": {"items": []}}`)
	})

	_, err := gateway.ArtistImage(context.Background(), "Nobody")
	assert.ErrorIs(t, err, ErrArtistNotFound)
}

func TestArtistImageSearchFailure(t *testing.T) {
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := gateway.ArtistImage(context.Background(), "Daft Punk")
	assert.ErrorIs(t, err, game.ErrGatewayUnavailable)
}

func TestArtistImageAuthFailure(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(tokenServer.Close)

	gateway := NewSpotifyGateway("id", "bad-secret")
	gateway.tokenURL = tokenServer.URL

	_, err := gateway.ArtistImage(context.Background(), "Daft Punk")
	assert.ErrorIs(t, err, game.ErrGatewayUnavailable)
}
