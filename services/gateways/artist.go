package gateways

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	gosync "sync"
	"time"

	"Soundcheck/services/game"
)

// ErrArtistNotFound means the lookup worked but Spotify has no image for
// the artist. Distinct from ErrGatewayUnavailable so callers can 404
// instead of degrading.
var ErrArtistNotFound = errors.New("no image found for artist")

// ArtistGateway resolves an artist name to an image URL. Failures are
// non-fatal to the session: the state machine fires lookups asynchronously
// and simply leaves the artist image unset when they fail.
type ArtistGateway interface {
	ArtistImage(ctx context.Context, artistName string) (string, error)
}

// SpotifyGateway implements ArtistGateway against the Spotify Web API using
// the client-credentials flow. The access token is cached until shortly
// before it expires.
type SpotifyGateway struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client

	// Overridable so tests can point at a local server
	tokenURL  string
	searchURL string

	mu          gosync.Mutex
	token       string
	tokenExpiry time.Time
}

const (
	spotifyTokenURL  = "https://accounts.spotify.com/api/token"
	spotifySearchURL = "https://api.spotify.com/v1/search"
)

func NewSpotifyGateway(clientID, clientSecret string) *SpotifyGateway {
	return &SpotifyGateway{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		tokenURL:     spotifyTokenURL,
		searchURL:    spotifySearchURL,
	}
}

func (g *SpotifyGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	credentials := base64.StdEncoding.EncodeToString(
		[]byte(g.clientID + ":" + g.clientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+credentials)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: spotify auth: %v", game.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: spotify auth returned %d", game.ErrGatewayUnavailable, resp.StatusCode)
	}

	var auth struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("%w: spotify auth decode: %v", game.ErrGatewayUnavailable, err)
	}

	g.token = auth.AccessToken
	// Refresh a minute early so in-flight searches never race expiry
	g.tokenExpiry = time.Now().Add(time.Duration(auth.ExpiresIn-60) * time.Second)
	return g.token, nil
}

// ArtistImage searches Spotify for the artist and returns the first image
// URL of the first match.
func (g *SpotifyGateway) ArtistImage(ctx context.Context, artistName string) (string, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return "", err
	}

	searchURL := fmt.Sprintf("%s?q=%s&type=artist&limit=1",
		g.searchURL, url.QueryEscape(artistName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: spotify search: %v", game.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: spotify search returned %d", game.ErrGatewayUnavailable, resp.StatusCode)
	}

	var search struct {
		Artists struct {
			Items []struct {
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"items"`
		} `json:"artists"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return "", fmt.Errorf("%w: spotify search decode: %v", game.ErrGatewayUnavailable, err)
	}

	if len(search.Artists.Items) == 0 || len(search.Artists.Items[0].Images) == 0 {
		return "", fmt.Errorf("%w: %s", ErrArtistNotFound, artistName)
	}
	return search.Artists.Items[0].Images[0].URL, nil
}
