// Package strategy models the ordered acquisition strategy table.
//
// A Strategy is one configured way of asking the download primitive to fetch
// media: which player clients to present, whether to read cookies from a
// browser store, and which extractor shortcuts to take. The Table is built
// once from configuration and is immutable for the process lifetime; jobs
// only ever read it.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"tunefetch/internal/config"
)

// Strategy is an immutable description of one acquisition attempt style.
type Strategy struct {
	// Order is the 1-based position in the fallback sequence.
	Order          int
	Name           string
	ClientProfiles []string
	// CookieSource names a browser cookie store ("firefox", "chromium") or a
	// cookies.txt path. Empty means the strategy needs no credentials.
	CookieSource string
	PlayerSkip   []string
	MissingPOT   bool
}

// RequiresAuth reports whether the strategy depends on a cookie source.
func (s Strategy) RequiresAuth() bool {
	return strings.TrimSpace(s.CookieSource) != ""
}

func (s Strategy) String() string {
	return fmt.Sprintf("%d:%s", s.Order, s.Name)
}

// Skip records a strategy that was excluded from an attempt run.
type Skip struct {
	Strategy Strategy
	Reason   string
}

// Table is the immutable ordered strategy list.
type Table struct {
	strategies []Strategy
}

// NewTable builds a Table from configuration entries, assigning fallback
// order by position.
func NewTable(entries []config.Strategy) Table {
	strategies := make([]Strategy, 0, len(entries))
	for i, entry := range entries {
		strategies = append(strategies, Strategy{
			Order:          i + 1,
			Name:           entry.Name,
			ClientProfiles: append([]string(nil), entry.ClientProfiles...),
			CookieSource:   entry.CookieSource,
			PlayerSkip:     append([]string(nil), entry.PlayerSkip...),
			MissingPOT:     entry.MissingPOT,
		})
	}
	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].Order < strategies[j].Order
	})
	return Table{strategies: strategies}
}

// Len returns the number of configured strategies.
func (t Table) Len() int {
	return len(t.strategies)
}

// All returns a copy of the full ordered strategy list.
func (t Table) All() []Strategy {
	out := make([]Strategy, len(t.strategies))
	copy(out, t.strategies)
	return out
}

// AuthProber reports whether a strategy's auth source is satisfiable.
type AuthProber interface {
	// Available returns false with a reason when the named cookie source
	// cannot back an acquisition attempt.
	Available(source string) (bool, string)
}

// Eligible filters the table to strategies whose auth requirements the
// prober can satisfy, preserving relative order. Skipped strategies are
// returned with the reason they were excluded.
func (t Table) Eligible(prober AuthProber) ([]Strategy, []Skip) {
	eligible := make([]Strategy, 0, len(t.strategies))
	var skipped []Skip
	for _, s := range t.strategies {
		if !s.RequiresAuth() {
			eligible = append(eligible, s)
			continue
		}
		if prober == nil {
			skipped = append(skipped, Skip{Strategy: s, Reason: "no cookie prober configured"})
			continue
		}
		ok, reason := prober.Available(s.CookieSource)
		if !ok {
			skipped = append(skipped, Skip{Strategy: s, Reason: reason})
			continue
		}
		eligible = append(eligible, s)
	}
	return eligible, skipped
}
