package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"Soundcheck/services/game"
)

// DJGateway dispatches a free-form script to the Virtual DJ controller and
// returns its text response. Connectivity failures surface to the
// controller UI only; they never touch session state.
type DJGateway interface {
	RunScript(ctx context.Context, script string) (string, error)
}

// VDJGateway talks to a local Virtual DJ instance over its HTTP query
// endpoint ({base}/query?script=...).
type VDJGateway struct {
	baseURL    string
	httpClient *http.Client
}

func NewVDJGateway(baseURL string) *VDJGateway {
	return &VDJGateway{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (g *VDJGateway) RunScript(ctx context.Context, script string) (string, error) {
	queryURL := fmt.Sprintf("%s/query?script=%s", g.baseURL, url.QueryEscape(script))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// VDJ not running or wrong URL
		return "", fmt.Errorf("%w: could not connect to Virtual DJ: %v", game.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: Virtual DJ returned %d", game.ErrGatewayUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading Virtual DJ response: %v", game.ErrGatewayUnavailable, err)
	}
	return string(body), nil
}
