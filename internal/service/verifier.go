package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTurnstileVerifyURL is Cloudflare's siteverify endpoint
const DefaultTurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// HumanVerifier decides whether a client-supplied challenge token proves a
// human submitted the form. An error means the decision could not be made.
type HumanVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// TurnstileVerifier checks tokens against Cloudflare Turnstile
type TurnstileVerifier struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewTurnstileVerifier creates a verifier; an empty verifyURL selects the
// public Cloudflare endpoint
func NewTurnstileVerifier(secret, verifyURL string, logger *zap.Logger) *TurnstileVerifier {
	if verifyURL == "" {
		verifyURL = DefaultTurnstileVerifyURL
	}
	return &TurnstileVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type turnstileResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
}

// Verify posts the token to siteverify
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call siteverify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var result turnstileResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode siteverify response: %w", err)
	}

	if !result.Success {
		v.logger.Debug("Turnstile rejected token", zap.Strings("error_codes", result.ErrorCodes))
	}
	return result.Success, nil
}

// StaticVerifier returns a fixed answer. Used for local development and tests.
type StaticVerifier bool

func (s StaticVerifier) Verify(context.Context, string, string) (bool, error) {
	return bool(s), nil
}
