// Package firebaseauth signs in anonymously against the Firebase Identity
// Toolkit REST API.
package firebaseauth

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

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/realtime"
)

// DefaultBaseURL is the Identity Toolkit endpoint.
const DefaultBaseURL = "https://identitytoolkit.googleapis.com"

// Client performs anonymous sign-up with a web API key.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for apiKey. baseURL may be empty.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type signUpRequest struct {
	ReturnSecureToken bool `json:"returnSecureToken"`
}

type signUpResponse struct {
	LocalID string `json:"localId"`
	IDToken string `json:"idToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// SignIn creates an anonymous account and returns its uid. Configuration
// failures are *domain.AuthSetupError; network and server failures are not.
func (c *Client) SignIn(ctx context.Context) (realtime.Principal, error) {
	if c.apiKey == "" {
		return realtime.Principal{}, &domain.AuthSetupError{Kind: domain.AuthInvalidCredential, Code: "MISSING_API_KEY"}
	}

	payload, err := json.Marshal(signUpRequest{ReturnSecureToken: true})
	if err != nil {
		return realtime.Principal{}, fmt.Errorf("marshal request: %w", err)
	}
	u := c.baseURL + "/v1/accounts:signUp?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return realtime.Principal{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return realtime.Principal{}, fmt.Errorf("anonymous sign-in: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return realtime.Principal{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return realtime.Principal{}, classify(resp.StatusCode, body)
	}

	var out signUpResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return realtime.Principal{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if out.LocalID == "" {
		return realtime.Principal{}, fmt.Errorf("anonymous sign-in returned no uid")
	}
	return realtime.Principal{UID: out.LocalID}, nil
}

// classify maps an error answer to a terminal setup error, or to a plain
// error when a later attempt may succeed.
func classify(statusCode int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)
	code := er.Error.Message
	upper := strings.ToUpper(code)

	switch {
	case strings.HasPrefix(upper, "ADMIN_ONLY_OPERATION"), strings.HasPrefix(upper, "OPERATION_NOT_ALLOWED"):
		return &domain.AuthSetupError{Kind: domain.AuthAnonymousDisabled, Code: code}
	case strings.Contains(upper, "API KEY NOT VALID"), strings.Contains(upper, "INVALID_API_KEY"),
		strings.Contains(upper, "API_KEY_INVALID"), strings.HasPrefix(upper, "INVALID_CREDENTIAL"):
		return &domain.AuthSetupError{Kind: domain.AuthInvalidCredential, Code: code}
	case statusCode == http.StatusBadRequest, statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return &domain.AuthSetupError{Kind: domain.AuthGeneric, Code: code, Cause: fmt.Errorf("HTTP %d", statusCode)}
	default:
		return fmt.Errorf("anonymous sign-in: HTTP %d: %s", statusCode, code)
	}
}

var _ realtime.Authenticator = (*Client)(nil)
