// Package search ranks recent workspaces against search terms.
package search

import (
	"net/url"
	"sort"
	"strings"

	"github.com/fgrehm/vscode-search-provider/internal/workspace"
	"golang.org/x/text/cases"
)

// Match quality of a single term. A term found at the start of the name
// beats one found anywhere in the name, which beats one found only in the
// URI. URI matches score in (0, uriWeight].
const (
	namePrefixScore = 3.0
	nameScore       = 2.0
	uriWeight       = 1.0
)

// Match is one record that matched all terms.
type Match struct {
	Record workspace.Record
	Score  float64
}

// fold case-folds s. Casers keep state, so one is made per call instead of
// sharing one between concurrent queries.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Terms normalizes raw search terms: whitespace is trimmed, empty terms are
// dropped and the rest case-folded.
func Terms(raw []string) []string {
	terms := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		terms = append(terms, fold(t))
	}
	return terms
}

// Rank returns the records matching every term, best first, at most limit of
// them. Records with equal scores are ordered by LastUsed, most recent first,
// then by their position in records. No terms, or a limit below one, yield
// no matches.
func Rank(records []workspace.Record, rawTerms []string, limit int) []Match {
	terms := Terms(rawTerms)
	if len(terms) == 0 || limit < 1 {
		return nil
	}

	var matches []Match
	for _, r := range records {
		if score, ok := Score(r, terms); ok {
			matches = append(matches, Match{Record: r, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Record.LastUsed.After(b.Record.LastUsed)
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Search is Rank reduced to record ids.
func Search(records []workspace.Record, terms []string, limit int) []string {
	matches := Rank(records, terms, limit)
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Record.ID
	}
	return ids
}

// Score matches already normalized terms against r. ok is false unless every
// term occurs in the name or the URI.
func Score(r workspace.Record, terms []string) (score float64, ok bool) {
	name := fold(r.Name)
	location := fold(searchableURI(r.URI))

	for _, term := range terms {
		switch {
		case strings.HasPrefix(name, term):
			score += namePrefixScore
		case strings.Contains(name, term):
			score += nameScore
		default:
			i := strings.LastIndex(location, term)
			if i < 0 {
				return 0, false
			}
			// Paths run from least to most specific segment, so the further
			// right a term ends the more it says about the workspace.
			score += uriWeight * float64(i+len(term)) / float64(len(location))
		}
	}
	return score, true
}

// searchableURI decodes percent escapes so that terms with spaces or other
// escaped characters match what the user sees.
func searchableURI(uri string) string {
	if decoded, err := url.PathUnescape(uri); err == nil {
		return decoded
	}
	return uri
}
