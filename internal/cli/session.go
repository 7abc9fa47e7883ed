package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"

	"github.com/yukikurage/taskmaster/internal/client"
)

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// loadSession returns a cookie jar seeded with the cookies saved for
// serverURL. A missing file yields an empty jar.
func loadSession(path, serverURL string) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return jar, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		// A corrupt file is the same as being signed out.
		return jar, nil
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(u, cookies)
	return jar, nil
}

// saveSession writes the client's current cookies, or removes the file when
// there are none.
func saveSession(path string, c *client.Client) error {
	if c == nil {
		return nil
	}

	cookies := c.Jar().Cookies(c.BaseURL())
	stored := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		if ck.Value == "" {
			continue
		}
		stored = append(stored, storedCookie{Name: ck.Name, Value: ck.Value})
	}

	if len(stored) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
