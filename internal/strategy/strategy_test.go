package strategy

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"tunefetch/internal/config"
)

type fakeProber struct {
	available map[string]bool
}

func (f fakeProber) Available(source string) (bool, string) {
	if f.available[source] {
		return true, ""
	}
	return false, "unavailable in test"
}

func TestNewTableAssignsOrder(t *testing.T) {
	table := NewTable([]config.Strategy{
		{Name: "first", ClientProfiles: []string{"tv"}},
		{Name: "second", ClientProfiles: []string{"web"}},
	})
	all := table.All()
	if len(all) != 2 {
		t.Fatalf("len: %d", len(all))
	}
	if all[0].Order != 1 || all[0].Name != "first" {
		t.Fatalf("first entry: %+v", all[0])
	}
	if all[1].Order != 2 || all[1].Name != "second" {
		t.Fatalf("second entry: %+v", all[1])
	}
}

func TestEligibleSkipsUnsatisfiedAuth(t *testing.T) {
	table := NewTable([]config.Strategy{
		{Name: "cookies", ClientProfiles: []string{"tv"}, CookieSource: "firefox"},
		{Name: "open", ClientProfiles: []string{"android"}},
	})

	eligible, skipped := table.Eligible(fakeProber{})
	if len(eligible) != 1 || eligible[0].Name != "open" {
		t.Fatalf("eligible: %+v", eligible)
	}
	if len(skipped) != 1 || skipped[0].Strategy.Name != "cookies" {
		t.Fatalf("skipped: %+v", skipped)
	}
	if skipped[0].Reason == "" {
		t.Fatal("skip reason must be recorded")
	}
}

func TestEligiblePreservesRelativeOrder(t *testing.T) {
	table := NewTable([]config.Strategy{
		{Name: "a", ClientProfiles: []string{"tv"}, CookieSource: "firefox"},
		{Name: "b", ClientProfiles: []string{"web"}},
		{Name: "c", ClientProfiles: []string{"android"}, CookieSource: "firefox"},
	})
	eligible, _ := table.Eligible(fakeProber{available: map[string]bool{"firefox": true}})
	if len(eligible) != 3 {
		t.Fatalf("eligible: %+v", eligible)
	}
	for i, want := range []string{"a", "b", "c"} {
		if eligible[i].Name != want {
			t.Fatalf("order violated at %d: %+v", i, eligible)
		}
	}
}

func TestCookieStoreFirefoxProbe(t *testing.T) {
	home := t.TempDir()
	profile := filepath.Join(home, ".mozilla", "firefox", "abc.default-release")
	if err := os.MkdirAll(profile, 0o755); err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(profile, "cookies.sqlite")
	writeCookieDB(t, dbPath, "moz_cookies", "host", ".youtube.com", 3)

	store := NewCookieStoreAt(home)
	ok, reason := store.Available("firefox")
	if !ok {
		t.Fatalf("expected available, got reason %q", reason)
	}
}

func TestCookieStoreFirefoxProbeEmptyStore(t *testing.T) {
	home := t.TempDir()
	profile := filepath.Join(home, ".mozilla", "firefox", "abc.default")
	if err := os.MkdirAll(profile, 0o755); err != nil {
		t.Fatal(err)
	}
	writeCookieDB(t, filepath.Join(profile, "cookies.sqlite"), "moz_cookies", "host", ".example.com", 2)

	store := NewCookieStoreAt(home)
	if ok, _ := store.Available("firefox"); ok {
		t.Fatal("store without platform cookies should be unavailable")
	}
}

func TestCookieStoreMissingProfile(t *testing.T) {
	store := NewCookieStoreAt(t.TempDir())
	if ok, reason := store.Available("firefox"); ok || reason == "" {
		t.Fatalf("expected unavailable with reason, got ok=%v reason=%q", ok, reason)
	}
}

func TestCookieStoreCookieFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.txt")

	store := NewCookieStoreAt(dir)
	if ok, _ := store.Available(path); ok {
		t.Fatal("missing cookie file should be unavailable")
	}

	if err := os.WriteFile(path, []byte("# Netscape HTTP Cookie File\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, reason := store.Available(path); !ok {
		t.Fatalf("expected available, got %q", reason)
	}
}

func TestCookieStoreUnknownSource(t *testing.T) {
	store := NewCookieStoreAt(t.TempDir())
	if ok, _ := store.Available("netscape-navigator"); ok {
		t.Fatal("unknown sources must be unavailable")
	}
}

func writeCookieDB(t *testing.T, path, table, hostColumn, host string, rows int) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE " + table + " (id INTEGER PRIMARY KEY, " + hostColumn + " TEXT, name TEXT, value TEXT)"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < rows; i++ {
		if _, err := db.Exec("INSERT INTO "+table+" ("+hostColumn+", name, value) VALUES (?, ?, ?)", host, "c", "v"); err != nil {
			t.Fatal(err)
		}
	}
}
