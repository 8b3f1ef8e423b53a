package usecase

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/arklim/anon-inbox/internal/core/domain"
)

const (
	usernameMinLength = 2
	usernameMaxLength = 20
	emailMaxLength    = 254
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// NormalizeUsername trims surrounding whitespace and checks the public handle format.
func NormalizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		return "", invalidInput("username", "is required")
	case n < usernameMinLength:
		return "", invalidInput("username", "must be at least 2 characters")
	case n > usernameMaxLength:
		return "", invalidInput("username", "must be at most 20 characters")
	}
	if !usernamePattern.MatchString(username) {
		return "", invalidInput("username", "may contain only letters, digits and underscores")
	}
	return username, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalidInput("email", "is required")
	}
	if len(email) > emailMaxLength {
		return "", invalidInput("email", "is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", invalidInput("email", "is not a valid address")
	}
	return email, nil
}

// normalizeContent trims the message and enforces the length window in characters.
func normalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if !utf8.ValidString(content) {
		return "", invalidContent("must be valid UTF-8")
	}
	if strings.IndexFunc(content, disallowedControl) >= 0 {
		return "", invalidContent("must not contain control characters")
	}
	n := utf8.RuneCountInString(content)
	if n < domain.MessageMinLength {
		return "", invalidContent("must be at least 10 characters")
	}
	if n > domain.MessageMaxLength {
		return "", invalidContent("must be at most 1000 characters")
	}
	return content, nil
}

// disallowedControl reports control runes other than line breaks and tabs.
// PostgreSQL text columns reject NUL outright.
func disallowedControl(r rune) bool {
	switch r {
	case '\n', '\r', '\t':
		return false
	}
	return unicode.IsControl(r)
}
