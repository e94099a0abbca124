// Package amadeus is the gateway to the external fare-search API. It owns
// the cached OAuth2 client-credential token and exposes a single lowest-
// price lookup per origin/destination/date triple.
package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/farewatch-api/pkg/circuitbreaker"
	"github.com/jwalitptl/farewatch-api/pkg/logger"
)

const (
	tokenPath  = "/v1/security/oauth2/token"
	searchPath = "/v2/shopping/flight-offers"

	// Refresh this long before the server-declared expiry so a token never
	// goes stale mid-destination.
	tokenExpiryMargin = 60 * time.Second

	searchAdults     = 1
	searchMaxResults = 5
	searchCurrency   = "USD"
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logger.Logger
	cb         *circuitbreaker.CircuitBreaker

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg Config, logger *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "amadeus-search",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type offerPrice struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type flightOffer struct {
	Price offerPrice `json:"price"`
}

type searchResponse struct {
	Data []flightOffer `json:"data"`
}

// Authenticate warms the token cache. The orchestrator calls this once at
// the start of a run so a credential failure aborts before any destination
// is touched.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.token(ctx)
	return err
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > tokenExpiryMargin {
		return c.accessToken, nil
	}
	if err := c.refreshTokenLocked(ctx); err != nil {
		return "", err
	}
	return c.accessToken, nil
}

// invalidateToken forces the next token() call to re-authenticate. Used on
// a 401 from the search endpoint.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

func (c *Client) refreshTokenLocked(ctx context.Context) error {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return &AuthError{Err: fmt.Errorf("api credentials not configured")}
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ZL.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("amadeus token request rejected")
		return &AuthError{Status: resp.StatusCode}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return &AuthError{Err: fmt.Errorf("decoding token response: %w", err)}
	}
	if token.AccessToken == "" || token.ExpiresIn <= 0 {
		return &AuthError{Err: fmt.Errorf("token response missing access_token or expiry")}
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	c.logger.ZL.Debug().Time("expires_at", c.tokenExpiry).Msg("amadeus token refreshed")
	return nil
}

// FetchLowestPrice returns the minimum offer price for the triple, ErrNoFares
// when the offer list is empty, a *TransientError for any non-success search
// outcome, and a *AuthError when re-authentication itself fails. One reactive
// re-authentication and retry is attempted after a 401.
func (c *Client) FetchLowestPrice(ctx context.Context, origin, destination string, departureDate time.Time) (float64, error) {
	token, err := c.token(ctx)
	if err != nil {
		return 0, err
	}

	price, err := c.search(ctx, token, origin, destination, departureDate)
	if terr, ok := err.(*TransientError); ok && terr.Status == http.StatusUnauthorized {
		c.invalidateToken()
		token, err = c.token(ctx)
		if err != nil {
			return 0, err
		}
		price, err = c.search(ctx, token, origin, destination, departureDate)
	}
	return price, err
}

func (c *Client) search(ctx context.Context, token, origin, destination string, departureDate time.Time) (float64, error) {
	params := url.Values{}
	params.Set("originLocationCode", origin)
	params.Set("destinationLocationCode", destination)
	params.Set("departureDate", departureDate.Format("2006-01-02"))
	params.Set("adults", strconv.Itoa(searchAdults))
	params.Set("max", strconv.Itoa(searchMaxResults))
	params.Set("currencyCode", searchCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+searchPath+"?"+params.Encode(), nil)
	if err != nil {
		return 0, &TransientError{Destination: destination, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var resp *http.Response
	cbErr := c.cb.Execute(func() error {
		var doErr error
		resp, doErr = c.httpClient.Do(req)
		return doErr
	})
	if cbErr != nil {
		return 0, &TransientError{Destination: destination, Err: cbErr}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ZL.Warn().
			Str("destination", destination).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("fare search returned non-success status")
		return 0, &TransientError{Destination: destination, Status: resp.StatusCode}
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, &DecodeError{Err: err}
	}

	if len(result.Data) == 0 {
		return 0, ErrNoFares
	}

	lowest := 0.0
	found := false
	for _, offer := range result.Data {
		price, err := strconv.ParseFloat(offer.Price.Total, 64)
		if err != nil {
			return 0, &DecodeError{Err: fmt.Errorf("offer price %q: %w", offer.Price.Total, err)}
		}
		if !found || price < lowest {
			lowest = price
			found = true
		}
	}
	return lowest, nil
}
