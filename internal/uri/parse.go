package uri

import (
	"strconv"
	"strings"

	"github.com/jsonagents/jsonagents/internal/diag"
)

// Scheme is the registered scheme literal for agent identifiers.
const Scheme = "ajson"

const maxPort = 65535

// URI holds the components of a parsed ajson:// identifier. Port is 0 when
// absent. Values are built once by Parse and never modified.
type URI struct {
	Scheme   string `json:"scheme"`
	Userinfo string `json:"userinfo,omitempty"`
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Path     string `json:"path,omitempty"`
	Query    string `json:"query,omitempty"`
	Fragment string `json:"fragment,omitempty"`
}

// Authority returns host[:port] without userinfo.
func (u *URI) Authority() string {
	if u.Port > 0 {
		return u.Host + ":" + strconv.Itoa(u.Port)
	}
	return u.Host
}

// String re-serializes the components. Parse(u.String()) yields an equal URI.
func (u *URI) String() string {
	var sb strings.Builder
	sb.WriteString(u.Scheme)
	sb.WriteString("://")
	if u.Userinfo != "" {
		sb.WriteString(u.Userinfo)
		sb.WriteByte('@')
	}
	sb.WriteString(u.Authority())
	sb.WriteString(u.Path)
	if u.Query != "" {
		sb.WriteByte('?')
		sb.WriteString(u.Query)
	}
	if u.Fragment != "" {
		sb.WriteByte('#')
		sb.WriteString(u.Fragment)
	}
	return sb.String()
}

// Result is the outcome of parsing one URI string. URI is non-nil iff the
// input is valid.
type Result struct {
	diag.Result
	Input string `json:"input"`
	URI   *URI   `json:"parsed,omitempty"`
}

// Parse scans s as an ajson:// URI. It never fails outright: structural
// faults are reported as diagnostics on the result.
func Parse(s string) Result {
	res := Result{Input: s}
	c := diag.NewCollector()
	u := scan(s, c)
	res.Result = c.Result(false)
	if res.Valid {
		res.URI = u
	}
	return res
}

func scan(s string, c *diag.Collector) *URI {
	if s == "" {
		c.Errorf(diag.EmptyURIError, "", "URI cannot be empty")
		return nil
	}

	sep := strings.Index(s, "://")
	if sep < 0 {
		c.Errorf(diag.SchemeError, "", "invalid URI scheme: expected '%s://', got none", Scheme)
		return nil
	}
	if scheme := s[:sep]; scheme != Scheme {
		c.Errorf(diag.SchemeError, "", "invalid URI scheme: expected '%s://', got '%s'", Scheme, scheme)
		return nil
	}

	u := &URI{Scheme: Scheme}
	rest := s[sep+3:]
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	scanAuthority(u, rest[:end], c)
	scanTail(u, rest[end:], c)
	return u
}

// scanAuthority splits [userinfo@]host[:port].
func scanAuthority(u *URI, authority string, c *diag.Collector) {
	hostport := authority
	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		u.Userinfo = authority[:at]
		hostport = authority[at+1:]
		c.Warnf(diag.AuthorityError, "", "URI contains userinfo (@), which is not recommended for security")
	}

	host, port, hasPort := hostport, "", false
	if strings.HasPrefix(hostport, "[") {
		// Bracketed IPv6 literal.
		if closeIdx := strings.IndexByte(hostport, ']'); closeIdx > 0 {
			host = hostport[:closeIdx+1]
			if tail := hostport[closeIdx+1:]; tail != "" {
				if tail[0] != ':' {
					c.Errorf(diag.AuthorityError, "", "invalid authority '%s': unexpected text after IPv6 literal", hostport)
					return
				}
				port, hasPort = tail[1:], true
			}
		}
	} else if colon := strings.LastIndexByte(hostport, ':'); colon >= 0 {
		host, port, hasPort = hostport[:colon], hostport[colon+1:], true
	}
	if hasPort {
		if port == "" || !allDigits(port) {
			c.Errorf(diag.AuthorityError, "", "invalid port in authority: '%s'", port)
			return
		}
	}

	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || len(port) > 5 || n < 1 || n > maxPort {
			c.Errorf(diag.AuthorityError, "", "invalid port number: %s (must be 1-%d)", port, maxPort)
		} else {
			u.Port = n
		}
	}

	switch {
	case host == "":
		c.Errorf(diag.AuthorityError, "", "URI must include an authority (host) component")
	case strings.ContainsAny(host, " \t\r\n"):
		c.Errorf(diag.AuthorityError, "", "invalid authority (host) '%s': must not contain whitespace", host)
	case !validHost(host):
		c.Errorf(diag.AuthorityError, "", "invalid authority (host) '%s': must be a valid domain name, IP address or 'localhost'", host)
	default:
		u.Host = host
	}
}

// scanTail splits /path?query#fragment. Everything before the first '?' or
// '#' is the path.
func scanTail(u *URI, tail string, c *diag.Collector) {
	if hash := strings.IndexByte(tail, '#'); hash >= 0 {
		u.Fragment = tail[hash+1:]
		tail = tail[:hash]
		if !validChars(u.Fragment, "/?") {
			c.Errorf(diag.FragmentError, "", "invalid characters in fragment: '%s'", u.Fragment)
		}
	}
	if q := strings.IndexByte(tail, '?'); q >= 0 {
		u.Query = tail[q+1:]
		tail = tail[:q]
		c.Warnf(diag.PathError, "", "query parameters present: '%s'", u.Query)
	}

	u.Path = tail
	switch {
	case u.Path == "":
		c.Warnf(diag.PathError, "", "URI has no path component")
	case !validChars(u.Path, "/"):
		c.Errorf(diag.PathError, "", "invalid characters in path: '%s'", u.Path)
	}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validHost accepts DNS names (including dotted IPv4) and bracketed IPv6
// literals.
func validHost(host string) bool {
	if host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "[") {
		inner := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
		if inner == "" || len(inner)+2 != len(host) {
			return false
		}
		for i := 0; i < len(inner); i++ {
			if ch := inner[i]; !(isHex(ch) || ch == ':' || ch == '.') {
				return false
			}
		}
		return true
	}
	for _, label := range strings.Split(host, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			if ch := label[i]; !(isAlnum(ch) || ch == '-') {
				return false
			}
		}
	}
	return true
}

// validChars reports whether s consists of RFC 3986 pchar characters,
// percent-encoded octets and the extra characters given.
func validChars(s, extra string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case isAlnum(ch), strings.IndexByte("-._~!$&'()*+,;=:@", ch) >= 0, strings.IndexByte(extra, ch) >= 0:
		case ch == '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return false
			}
			i += 2
		default:
			return false
		}
	}
	return true
}

func isAlnum(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func isHex(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
