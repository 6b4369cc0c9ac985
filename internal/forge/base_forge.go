package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/version"
)

// BaseForge provides the HTTP plumbing shared by REST and GraphQL calls.
type BaseForge struct {
	httpClient *http.Client
	apiURL     string
	token      string

	authHeaderPrefix string
	customHeaders    map[string]string
}

// NewBaseForge creates a BaseForge. A nil httpClient gets a 30s timeout client.
func NewBaseForge(httpClient *http.Client, apiURL, token string) *BaseForge {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &BaseForge{
		httpClient:       httpClient,
		apiURL:           apiURL,
		token:            token,
		authHeaderPrefix: "Bearer ",
		customHeaders:    make(map[string]string),
	}
}

// SetCustomHeader sets a header sent with every request.
func (b *BaseForge) SetCustomHeader(key, value string) {
	b.customHeaders[key] = value
}

// NewRequest builds a request against endpoint, a path relative to the API
// URL that may carry a query string. A non-nil body is sent as JSON.
func (b *BaseForge) NewRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	cleanEndpoint := strings.TrimPrefix(endpoint, "/")
	var rawQuery string
	if idx := strings.Index(cleanEndpoint, "?"); idx != -1 {
		rawQuery = cleanEndpoint[idx+1:]
		cleanEndpoint = cleanEndpoint[:idx]
	}

	u, err := url.Parse(b.apiURL)
	if err != nil {
		return nil, errors.ForgeError("failed to parse API URL").
			WithCause(err).
			WithContext("api_url", b.apiURL).
			Build()
	}
	if cleanEndpoint != "" {
		u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), cleanEndpoint)
	}
	if rawQuery != "" {
		u.RawQuery = rawQuery
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.ForgeError("failed to marshal request body").WithCause(err).Build()
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.ForgeError("failed to create request").
			WithCause(err).
			WithContext("method", method).
			WithContext("url", u.String()).
			Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.token != "" {
		req.Header.Set("Authorization", b.authHeaderPrefix+b.token)
	}
	req.Header.Set("User-Agent", "bloghub/"+version.Version)
	for key, value := range b.customHeaders {
		req.Header.Set(key, value)
	}
	return req, nil
}

// DoRequest executes req and decodes a JSON response into result.
func (b *BaseForge) DoRequest(req *http.Request, result any) error {
	_, err := b.DoRequestWithHeaders(req, result)
	return err
}

// DoRequestWithHeaders is like DoRequest but also returns response headers.
func (b *BaseForge) DoRequestWithHeaders(req *http.Request, result any) (http.Header, error) {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, errors.NetworkError("failed to execute GitHub request").
			WithCause(err).
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, statusError(req, resp)
	}
	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return nil, errors.ForgeError("failed to decode response").
				WithCause(err).
				WithContext("url", req.URL.String()).
				Build()
		}
	}
	return resp.Header, nil
}

// statusError classifies an HTTP error response. Rate limiting shows up
// as 403 or 429 with an exhausted X-RateLimit-Remaining header.
func statusError(req *http.Request, resp *http.Response) error {
	limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	bodyStr := strings.ReplaceAll(string(limitedBody), "\n", " ")

	var builder *errors.ErrorBuilder
	msg := fmt.Sprintf("GitHub API error: %s", resp.Status)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.Header.Get("X-RateLimit-Remaining") == "0":
		builder = errors.NewError(errors.CategoryNetwork, msg).RateLimit()
		if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
			builder.WithContext("rate_limit_reset", time.Unix(reset, 0).UTC().Format(time.RFC3339))
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		builder = errors.AuthError(msg)
	case resp.StatusCode == http.StatusNotFound:
		builder = errors.NotFoundError(msg)
	case resp.StatusCode >= 500:
		builder = errors.NetworkError(msg)
	default:
		builder = errors.NewError(errors.CategoryForge, msg)
	}
	return builder.
		WithContext("status", resp.Status).
		WithContext("code", resp.StatusCode).
		WithContext("url", req.URL.String()).
		WithContext("response", bodyStr).
		Build()
}
