package pageinsight

import (
	"errors"
	"net/url"
	"strings"
	"unicode"
)

// ErrInvalidURL is returned by Normalize when the input is not a usable site URL.
var ErrInvalidURL = errors.New("invalid website url")

// Normalize canonicalizes a user-supplied site identifier: it trims and
// lower-cases the input, defaults the scheme to https and drops trailing
// slashes. The result is a well-formed absolute http(s) URL, and normalizing
// it again returns it unchanged.
func Normalize(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", ErrInvalidURL
	}

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		if strings.Contains(s, "://") {
			return "", ErrInvalidURL
		}
		s = "https://" + s
	}
	s = trimTrailing(s)

	u, err := url.Parse(s)
	if err != nil {
		return "", errors.Join(ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Hostname() == "" || u.User != nil {
		return "", ErrInvalidURL
	}
	host := u.Hostname()
	if host != "localhost" && !strings.Contains(host, ".") {
		return "", ErrInvalidURL
	}

	return s, nil
}

// trimTrailing drops trailing slashes and whitespace until neither remains.
func trimTrailing(s string) string {
	for {
		t := strings.TrimRightFunc(strings.TrimRight(s, "/"), unicode.IsSpace)
		if t == s {
			return s
		}
		s = t
	}
}
