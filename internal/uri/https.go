package uri

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	// WellKnownPrefix is the path every HTTPS manifest location starts with.
	WellKnownPrefix = "/.well-known/agents"
	// ManifestExtension is appended to the last path segment when missing.
	ManifestExtension = ".agents.json"
)

// ErrNoPath is returned when a URI has no path to map onto a well-known
// location.
var ErrNoPath = errors.New("URI has no path component to map to an HTTPS location")

var prefixSegments = strings.Split(strings.Trim(WellKnownPrefix, "/"), "/")

// ToHTTPS derives the HTTPS location of the manifest an ajson:// URI names:
// https://host[:port]/.well-known/agents/<path>.agents.json[#fragment].
// Leading path segments that repeat the tail of the well-known prefix are not
// duplicated, so /agents/router maps to /.well-known/agents/router.
// Userinfo and query are not carried over.
func ToHTTPS(u *URI) (string, error) {
	if u == nil {
		return "", errors.New("nil URI")
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "", ErrNoPath
	}
	segments := strings.Split(path, "/")

	overlap := 0
	for k := min(len(prefixSegments), len(segments)); k > 0; k-- {
		if slices.Equal(prefixSegments[len(prefixSegments)-k:], segments[:k]) {
			overlap = k
			break
		}
	}
	joined := append(slices.Clone(prefixSegments), segments[overlap:]...)

	var sb strings.Builder
	sb.WriteString("https://")
	sb.WriteString(u.Host)
	if u.Port > 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(u.Port))
	}
	sb.WriteByte('/')
	sb.WriteString(strings.Join(joined, "/"))
	if !strings.HasSuffix(joined[len(joined)-1], ManifestExtension) {
		sb.WriteString(ManifestExtension)
	}
	if u.Fragment != "" {
		sb.WriteByte('#')
		sb.WriteString(u.Fragment)
	}
	return sb.String(), nil
}

// ResolveHTTPS parses raw and transforms it with ToHTTPS.
func ResolveHTTPS(raw string) (string, error) {
	res := Parse(raw)
	if !res.Valid {
		msgs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			msgs = append(msgs, e.Message)
		}
		return "", fmt.Errorf("invalid %s:// URI: %s", Scheme, strings.Join(msgs, "; "))
	}
	return ToHTTPS(res.URI)
}
