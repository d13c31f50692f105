// Package urlnorm canonicalizes URLs so that semantically identical
// http and https URLs compare equal as strings.
package urlnorm

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when the input cannot be parsed as a URL.
var ErrInvalidURL = errors.New("invalid url")

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Normalize returns the canonical form of rawURL.
//
// The scheme and host are lower-cased, the default port of the scheme is
// dropped and a single trailing slash is removed from a non-root path.
// An empty path becomes "/". Query, fragment and path case are kept verbatim.
func Normalize(rawURL string) (string, error) {
	const op = "urlnorm.Normalize"

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s: %w: not an absolute url", op, ErrInvalidURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = normalizeHost(u.Scheme, u.Host)

	switch {
	case u.Path == "":
		u.Path = "/"
		u.RawPath = ""
	case u.Path != "/" && strings.HasSuffix(u.Path, "/"):
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	}

	return u.String(), nil
}

func normalizeHost(scheme, host string) string {
	host = strings.ToLower(host)

	hostname, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}

	if port == "" || defaultPorts[scheme] == port {
		if strings.Contains(hostname, ":") {
			return "[" + hostname + "]"
		}
		return hostname
	}

	return host
}
