package security

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSearchQueryLength defines the maximum allowed length, in characters, for search queries.
const MaxSearchQueryLength = 100

// LikeEscape is the escape character used by LikePattern.
const LikeEscape = `\`

var (
	// ErrQueryTooLong is returned when a search query exceeds MaxSearchQueryLength.
	ErrQueryTooLong = errors.New("search query too long")
	// ErrQueryInvalid is returned when a search query contains disallowed input.
	ErrQueryInvalid = errors.New("search query contains invalid characters")
)

// suspiciousPatterns flag input that looks like SQL or script injection.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|create|alter|exec|execute|truncate)\b`),
	regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i)\b(or|and)\s+['"].*['"]\s*=\s*['"].*['"]`),
	regexp.MustCompile(`--|/\*|\*/`),
	regexp.MustCompile(`(?i)\b(waitfor|benchmark|sleep|pg_sleep)\b`),
	regexp.MustCompile(`(?i)(<script|</script|javascript:|vbscript:|onload=|onerror=)`),
}

// ValidateSearchQuery trims query and rejects anything that is too long,
// looks like an injection attempt, or contains characters outside the
// allowed set. An empty query is valid and matches everything.
func ValidateSearchQuery(query string) (string, error) {
	if query == "" {
		return "", nil
	}

	if utf8.RuneCountInString(query) > MaxSearchQueryLength {
		return "", ErrQueryTooLong
	}

	query = strings.TrimSpace(query)

	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(query) {
			return "", ErrQueryInvalid
		}
	}

	for _, r := range query {
		if !isSearchRune(r) {
			return "", ErrQueryInvalid
		}
	}

	return query, nil
}

// LikePattern wraps query for a substring LIKE match, escaping the LIKE
// wildcards so they match literally. Use with ESCAPE LikeEscape.
func LikePattern(query string) string {
	r := strings.NewReplacer(
		LikeEscape, LikeEscape+LikeEscape,
		"%", LikeEscape+"%",
		"_", LikeEscape+"_",
	)
	return "%" + r.Replace(query) + "%"
}

// isSearchRune allows letters, digits, spaces and the punctuation found in names and emails.
func isSearchRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', '@', '+', '\'':
		return true
	}
	return false
}
