// Package extract turns rendered pages into hierarchy records via goquery.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Record is one extracted entity: a country, league or team.
type Record struct {
	ID   string
	Name string
	URL  string
}

// Selectors for the three hierarchy levels. The site renders each level as a
// link list; the stable id is the last URL path segment of the link target.
const (
	countriesSelector = "ul.paises a[href], table.countries a[href]"
	leaguesSelector   = "div.competiciones a[href], table.leagues a[href]"
	teamsSelector     = "table.standings a[href], table.clasificacion a[href]"
)

// Countries extracts the root-level country list.
func Countries(body []byte, base *url.URL) ([]Record, error) {
	return collect(body, base, countriesSelector)
}

// Leagues extracts a country page's league list.
func Leagues(body []byte, base *url.URL) ([]Record, error) {
	return collect(body, base, leaguesSelector)
}

// Teams extracts a league's standings page. Two links pointing at the same
// team id collapse to one record keeping the first-encountered name.
func Teams(body []byte, base *url.URL) ([]Record, error) {
	return collect(body, base, teamsSelector)
}

// collect is deterministic over page content: same bytes, same records. Order
// follows document order; dedup is by id with first-seen-wins semantics.
func collect(body []byte, base *url.URL, selector string) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	seen := map[string]struct{}{}
	var records []Record
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		abs := resolve(base, href)
		id := Slug(abs)
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		name := strings.TrimSpace(sel.Text())
		if name == "" {
			name = id
		}
		seen[id] = struct{}{}
		records = append(records, Record{ID: id, Name: name, URL: abs})
	})
	return records, nil
}

// Slug derives the stable entity id from a URL: its last non-empty path
// segment, without extension or query.
func Slug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if dot := strings.LastIndex(last, "."); dot > 0 {
		last = last[:dot]
	}
	return strings.ToLower(last)
}

var cupKeywords = []string{"cup", "copa", "trophy", "shield", "knockout", "playoff"}

// ClassifyCup reports whether a league URL looks like a cup or knockout
// competition. The classification is purely keyword-based; the site exposes
// no metadata for it.
func ClassifyCup(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, kw := range cupKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
