package envelope

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidLink indicates a share link without a secret id or key.
var ErrInvalidLink = errors.New("invalid share link")

// FormatLink builds the shareable locator {baseURL}/s/{id}?key={keyHex}.
// The key rides in the query so the server API, which only receives the id, never sees it.
func FormatLink(baseURL, id, keyHex string) string {
	return fmt.Sprintf("%s/s/%s?key=%s", strings.TrimRight(baseURL, "/"), id, url.QueryEscape(keyHex))
}

// ParseLink extracts the secret id and the hex key from a share link.
func ParseLink(raw string) (id, keyHex string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[len(segments)-2] != "s" || segments[len(segments)-1] == "" {
		return "", "", fmt.Errorf("%w: expected /s/{id}", ErrInvalidLink)
	}
	id = segments[len(segments)-1]

	keyHex = u.Query().Get("key")
	if keyHex == "" {
		return "", "", fmt.Errorf("%w: missing key", ErrInvalidLink)
	}
	return id, keyHex, nil
}
