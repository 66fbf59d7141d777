package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndthang/quizdeck/internal/dto"
)

const refreshTimeout = 15 * time.Second

// authTransport attaches the bearer token to every request and, on a 401
// "token_not_valid" response, refreshes the access token once and replays the
// original request. One refresh per request, never more.
type authTransport struct {
	base       http.RoundTripper
	creds      CredentialStore
	refreshURL string
	// refreshClient performs the refresh call itself, outside the auth
	// transport, so a broken access token cannot recurse into another refresh.
	refreshClient *http.Client
}

func newAuthTransport(baseURL string, creds CredentialStore, base http.RoundTripper) *authTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{
		base:          base,
		creds:         creds,
		refreshURL:    baseURL + "/users/token/refresh/",
		refreshClient: &http.Client{Timeout: refreshTimeout},
	}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	authed, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	if tok := t.creds.AccessToken(); tok != "" {
		authed.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := t.base.RoundTrip(authed)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || t.creds.RefreshToken() == "" {
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading 401 response: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	var apiErr dto.ErrorDTO
	if json.Unmarshal(body, &apiErr) != nil || apiErr.Code != "token_not_valid" {
		return resp, nil
	}

	access, refreshErr := t.refresh(req.Context())
	if refreshErr != nil {
		log.Warn().Err(refreshErr).Msg("Token refresh failed, clearing credentials")
		t.creds.Clear()
		return resp, nil // surface the original 401
	}
	t.creds.SetAccessToken(access)

	retry, err := cloneRequest(req)
	if err != nil {
		// Body cannot be replayed; the caller gets the original 401.
		return resp, nil
	}
	retry.Header.Set("Authorization", "Bearer "+access)
	return t.base.RoundTrip(retry)
}

func (t *authTransport) refresh(ctx context.Context) (string, error) {
	payload, err := json.Marshal(dto.TokenRefreshRequestDTO{Refresh: t.creds.RefreshToken()})
	if err != nil {
		return "", fmt.Errorf("encoding refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.refreshClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("refresh rejected: HTTP %d", resp.StatusCode)
	}
	var out dto.TokenRefreshResponseDTO
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding refresh response: %w", err)
	}
	if out.Access == "" {
		return "", errors.New("refresh response missing access token")
	}
	return out.Access, nil
}

// cloneRequest copies the request with a replayable body. GetBody is set by
// http.NewRequest for the buffered readers the client uses.
func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replaying request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}
