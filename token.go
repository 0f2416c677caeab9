package live

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/bt-bridge/gemini-live/shared"
)

// DefaultTokenEndpoint mints ephemeral auth tokens for live sessions.
const DefaultTokenEndpoint = "https://generativelanguage.googleapis.com/v1alpha/auth_tokens"

type TokenOptions struct {
	// Endpoint overrides the REST endpoint; tests point it at a local server.
	Endpoint string
	// Uses limits how many sessions the token can start. Defaults to 1.
	Uses int
	// TTL bounds the token lifetime. Zero keeps the server default.
	TTL time.Duration
}

type tokenRequest struct {
	Uses       int    `json:"uses,omitempty"`
	ExpireTime string `json:"expireTime,omitempty"`
}

type tokenResponse struct {
	Name string `json:"name"`
}

// CreateEphemeralToken exchanges the long-lived API key for a short-lived,
// single-use session token, so the key never appears in a websocket URL.
func CreateEphemeralToken(ctx context.Context, logger shared.LoggerAdapter, apiKey string, opts TokenOptions) (string, error) {
	if logger == nil {
		return "", shared.ErrNoLogger
	}
	if apiKey == "" {
		return "", shared.ErrNoAPIKey
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultTokenEndpoint
	}
	uses := opts.Uses
	if uses <= 0 {
		uses = 1
	}
	reqBody := tokenRequest{Uses: uses}
	if opts.TTL > 0 {
		reqBody.ExpireTime = time.Now().UTC().Add(opts.TTL).Format(time.RFC3339)
	}
	body, err := sonic.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling token request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint + "?key=" + url.QueryEscape(apiKey))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	errC := make(chan error)
	go func() {
		defer close(errC)
		errC <- fasthttp.Do(req, resp)
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errC:
		if err != nil {
			return "", fmt.Errorf("performing token request: %w", err)
		}
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), string(resp.Body()))
	}
	var tr tokenResponse
	if err := sonic.Unmarshal(resp.Body(), &tr); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}
	if tr.Name == "" {
		return "", errors.New("token response missing name")
	}
	logger.Debug("ephemeral token minted")
	return tr.Name, nil
}
