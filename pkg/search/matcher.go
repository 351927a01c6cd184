package search

import (
	"fmt"
	"regexp"

	"vaultmcp/pkg/dto"
)

// buildPattern compiles the query into the matcher used by the cache scan.
// Literal queries have their regex metacharacters escaped first; case
// insensitivity is expressed through the (?i) flag so one code path serves
// both modes.
func buildPattern(query string, useRegex, caseSensitive bool) (*regexp.Regexp, error) {
	expr := query
	if !useRegex {
		expr = regexp.QuoteMeta(query)
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}

	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", query, err)
	}
	return pattern, nil
}

// scanContent finds every occurrence of pattern in content, forward-scanning
// without deduplicating. Each match carries a context snippet bounded by
// contextLength on both sides, the matched text, and the match's offset
// within its snippet. A zero-width match advances the scan position by one
// byte so patterns that match the empty string terminate.
func scanContent(content string, pattern *regexp.Regexp, contextLength int) []dto.SearchMatch {
	var matches []dto.SearchMatch

	pos := 0
	for pos <= len(content) {
		loc := pattern.FindStringIndex(content[pos:])
		if loc == nil {
			break
		}

		start := pos + loc[0]
		end := pos + loc[1]

		ctxStart := start - contextLength
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := end + contextLength
		if ctxEnd > len(content) {
			ctxEnd = len(content)
		}

		offset := start - ctxStart
		matches = append(matches, dto.SearchMatch{
			Context:     content[ctxStart:ctxEnd],
			MatchText:   content[start:end],
			MatchOffset: &offset,
		})

		if end == start {
			end++ // zero-width match, step forward explicitly
		}
		pos = end
	}

	return matches
}
