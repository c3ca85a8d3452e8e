// Package player validates player script URLs and extracts metadata from
// player script bodies.
package player

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// TrustedOrigin is prepended to relative /s/player/ paths.
const TrustedOrigin = "https://www.youtube.com"

const playerPathPrefix = "/s/player/"

// AllowedHosts lists the hostnames a player script may be fetched from.
var AllowedHosts = []string{"youtube.com", "www.youtube.com", "m.youtube.com"}

var (
	// ErrInvalidURL is returned for player URLs that are malformed, relative
	// outside /s/player/, or point at a host outside AllowedHosts.
	ErrInvalidURL = errors.New("invalid player url")

	// ErrTimestampNotFound is returned when a player script carries no
	// signature timestamp.
	ErrTimestampNotFound = errors.New("timestamp not found in player script")
)

var stsPattern = regexp.MustCompile(`(signatureTimestamp|sts):(\d+)`)

// Normalize validates raw and returns the absolute URL the script cache may
// fetch. It never performs I/O.
func Normalize(raw string) (string, error) {
	if strings.HasPrefix(raw, "/") {
		if strings.HasPrefix(raw, playerPathPrefix) {
			return TrustedOrigin + raw, nil
		}
		return "", fmt.Errorf("%w: invalid player path %q", ErrInvalidURL, raw)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if !slices.Contains(AllowedHosts, strings.ToLower(u.Hostname())) {
		return "", fmt.Errorf("%w: host %q is not allowed", ErrInvalidURL, u.Hostname())
	}
	return raw, nil
}

// SignatureTimestamp returns the signature timestamp embedded in a player
// script.
func SignatureTimestamp(script []byte) (string, error) {
	m := stsPattern.FindSubmatch(script)
	if len(m) < 3 || len(m[2]) == 0 {
		return "", ErrTimestampNotFound
	}
	return string(m[2]), nil
}
