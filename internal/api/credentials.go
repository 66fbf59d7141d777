package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// CredentialStore supplies and persists the token pair used by the auth
// transport. It is injected into the client rather than living in package
// globals, so token scope follows the application lifetime. Implementations
// must be safe for concurrent use.
type CredentialStore interface {
	AccessToken() string
	RefreshToken() string
	// SetTokens replaces the whole pair, e.g. after login.
	SetTokens(access, refresh string)
	// SetAccessToken replaces only the access token, e.g. after a refresh.
	SetAccessToken(access string)
	// Clear drops both tokens, e.g. after a failed refresh.
	Clear()
}

// MemoryCredentials is an in-memory CredentialStore.
type MemoryCredentials struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

func NewMemoryCredentials(access, refresh string) *MemoryCredentials {
	return &MemoryCredentials{access: access, refresh: refresh}
}

func (c *MemoryCredentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access
}

func (c *MemoryCredentials) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresh
}

func (c *MemoryCredentials) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access, c.refresh = access, refresh
}

func (c *MemoryCredentials) SetAccessToken(access string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access = access
}

func (c *MemoryCredentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access, c.refresh = "", ""
}

// FileCredentials persists the token pair as a JSON file so the CLI stays
// logged in across runs.
type FileCredentials struct {
	mu      sync.RWMutex
	path    string
	access  string
	refresh string
}

type tokenFile struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func NewFileCredentials(path string) (*FileCredentials, error) {
	c := &FileCredentials{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file %s: %w", path, err)
	}
	var doc tokenFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", path, err)
	}
	c.access, c.refresh = doc.Access, doc.Refresh
	return c, nil
}

func (c *FileCredentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access
}

func (c *FileCredentials) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresh
}

func (c *FileCredentials) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access, c.refresh = access, refresh
	c.persistLocked()
}

func (c *FileCredentials) SetAccessToken(access string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access = access
	c.persistLocked()
}

func (c *FileCredentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access, c.refresh = "", ""
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", c.path).Msg("Failed to remove token file")
	}
}

// persistLocked writes the pair to disk. Persistence failures are logged, not
// returned: the in-memory tokens stay valid for the rest of the run.
func (c *FileCredentials) persistLocked() {
	data, err := json.Marshal(tokenFile{Access: c.access, Refresh: c.refresh})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode token file")
		return
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		log.Warn().Err(err).Str("path", c.path).Msg("Failed to write token file")
	}
}
