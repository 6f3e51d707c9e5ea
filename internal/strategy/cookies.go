package strategy

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"tunefetch/internal/fileutil"
)

// CookieStore probes browser cookie databases to decide whether a
// cookie-backed strategy is worth attempting. Browser stores are SQLite
// databases that the browser may hold locked, so probes work on a throwaway
// copy opened read-only.
type CookieStore struct {
	home string
}

// NewCookieStore probes stores under the current user's home directory.
func NewCookieStore() *CookieStore {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return &CookieStore{home: home}
}

// NewCookieStoreAt probes stores rooted at the given directory (tests).
func NewCookieStoreAt(home string) *CookieStore {
	return &CookieStore{home: home}
}

// Available implements AuthProber. The source is a browser name or a
// cookies.txt path; a browser store counts as available only when it holds at
// least one cookie for the target platform.
func (c *CookieStore) Available(source string) (bool, string) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return true, ""
	case strings.HasSuffix(source, ".txt"):
		return c.probeCookieFile(source)
	case strings.EqualFold(source, "firefox"):
		return c.probeFirefox()
	case strings.EqualFold(source, "chromium"), strings.EqualFold(source, "chrome"):
		return c.probeChromium(source)
	default:
		return false, fmt.Sprintf("unknown cookie source %q", source)
	}
}

func (c *CookieStore) probeCookieFile(path string) (bool, string) {
	size, err := fileutil.FileSize(path)
	if err != nil {
		return false, fmt.Sprintf("cookie file %s unreadable: %v", path, err)
	}
	if size == 0 {
		return false, fmt.Sprintf("cookie file %s is empty", path)
	}
	return true, ""
}

func (c *CookieStore) probeFirefox() (bool, string) {
	if c.home == "" {
		return false, "home directory unknown"
	}
	profiles := filepath.Join(c.home, ".mozilla", "firefox")
	matches, err := filepath.Glob(filepath.Join(profiles, "*", "cookies.sqlite"))
	if err != nil || len(matches) == 0 {
		return false, "no firefox profile with a cookie store found"
	}
	for _, dbPath := range matches {
		count, err := c.countCookies(dbPath, "moz_cookies", "host")
		if err != nil {
			continue
		}
		if count > 0 {
			return true, ""
		}
	}
	return false, "firefox cookie store holds no cookies for the target platform"
}

func (c *CookieStore) probeChromium(browser string) (bool, string) {
	if c.home == "" {
		return false, "home directory unknown"
	}
	dir := "chromium"
	if strings.EqualFold(browser, "chrome") {
		dir = "google-chrome"
	}
	dbPath := filepath.Join(c.home, ".config", dir, "Default", "Cookies")
	count, err := c.countCookies(dbPath, "cookies", "host_key")
	if err != nil {
		return false, fmt.Sprintf("%s cookie store unreadable: %v", browser, err)
	}
	if count == 0 {
		return false, fmt.Sprintf("%s cookie store holds no cookies for the target platform", browser)
	}
	return true, ""
}

// countCookies copies the store aside and counts rows whose host column
// matches the target platform.
func (c *CookieStore) countCookies(dbPath, table, hostColumn string) (int, error) {
	tmp, err := os.CreateTemp("", "cookieprobe-*.sqlite")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := fileutil.CopyFile(dbPath, tmpPath); err != nil {
		return 0, err
	}

	db, err := sql.Open("sqlite", "file:"+tmpPath+"?mode=ro")
	if err != nil {
		return 0, err
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s LIKE ?", table, hostColumn) //nolint:gosec
	var count int
	if err := db.QueryRow(query, "%youtube.com").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
