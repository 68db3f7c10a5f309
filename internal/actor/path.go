package actor

import (
	"fmt"
	"strconv"
	"strings"
)

// GuardianKind selects which of the two top-level guardians a path (or a
// freshly bootstrapped system) anchors to.
type GuardianKind int

const (
	UserGuardian GuardianKind = iota
	SystemGuardian
)

func (g GuardianKind) segment() string {
	if g == SystemGuardian {
		return "system"
	}
	return "user"
}

// Path is a hierarchical URI naming an actor: scheme://system@host:port/user/seg1/seg2[#uid].
// A local path omits the host:port authority entirely (scheme://system/user/a/b).
type Path struct {
	Scheme     string
	System     string
	Host       string // empty for local paths
	Port       uint16 // 0 for local paths
	Segments   []string
	UID        uint64 // 0 means "no uid"
	HasUID     bool
}

// DefaultScheme is used when a path is constructed without remoting.
const DefaultScheme = "fraktor"

// Local builds a path with no remote authority.
func Local(system string, segments ...string) Path {
	return Path{Scheme: DefaultScheme, System: system, Segments: append([]string(nil), segments...)}
}

// IsLocal reports whether the path carries no remote authority.
func (p Path) IsLocal() bool { return p.Host == "" }

// Authority renders the "system@host:port" prefix, or just "system" for a
// local path.
func (p Path) Authority() string {
	if p.IsLocal() {
		return p.System
	}
	return fmt.Sprintf("%s@%s:%d", p.System, p.Host, p.Port)
}

// WithUID returns a copy of the path disambiguated with an actor
// incarnation uid, used to distinguish restart generations on the wire.
func (p Path) WithUID(uid uint64) Path {
	p.UID = uid
	p.HasUID = true
	return p
}

// Child returns a copy of the path with an additional trailing segment.
func (p Path) Child(name string) Path {
	next := make([]string, len(p.Segments)+1)
	copy(next, p.Segments)
	next[len(p.Segments)] = name
	p.Segments = next
	p.HasUID = false
	p.UID = 0
	return p
}

// Parent returns the path with its last segment removed, or the path
// unchanged if it has no segments.
func (p Path) Parent() Path {
	if len(p.Segments) == 0 {
		return p
	}
	p.Segments = p.Segments[:len(p.Segments)-1]
	p.HasUID = false
	p.UID = 0
	return p
}

// Format renders the canonical URI form. Parse(Format(p)) == p for any
// valid path.
func (p Path) Format() string {
	var b strings.Builder
	b.WriteString(p.Scheme)
	b.WriteString("://")
	b.WriteString(p.Authority())
	for _, seg := range p.Segments {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	if p.HasUID {
		b.WriteByte('#')
		b.WriteString(strconv.FormatUint(p.UID, 10))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (p Path) String() string { return p.Format() }

// Equal compares two paths for structural equality, including uid.
func (p Path) Equal(other Path) bool {
	if p.Scheme != other.Scheme || p.System != other.System || p.Host != other.Host ||
		p.Port != other.Port || p.HasUID != other.HasUID || p.UID != other.UID {
		return false
	}
	if len(p.Segments) != len(other.Segments) {
		return false
	}
	for i := range p.Segments {
		if p.Segments[i] != other.Segments[i] {
			return false
		}
	}
	return true
}

// ParsePath parses a canonical path URI of the form
// "scheme://system@host:port/seg/seg2#uid" or the local form
// "scheme://system/seg/seg2#uid".
func ParsePath(raw string) (Path, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Path{}, fmt.Errorf("actor path %q: missing scheme separator", raw)
	}
	if scheme == "" {
		return Path{}, fmt.Errorf("actor path %q: empty scheme", raw)
	}

	var uidPart string
	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		uidPart = rest[idx+1:]
		rest = rest[:idx]
	}

	authority := rest
	var segmentsRaw string
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		authority = rest[:idx]
		segmentsRaw = rest[idx+1:]
	}
	if authority == "" {
		return Path{}, fmt.Errorf("actor path %q: empty authority", raw)
	}

	system := authority
	host := ""
	var port uint16
	if at := strings.IndexByte(authority, '@'); at >= 0 {
		system = authority[:at]
		hostport := authority[at+1:]
		h, portStr, found := strings.Cut(hostport, ":")
		if !found {
			return Path{}, fmt.Errorf("actor path %q: authority missing port", raw)
		}
		p64, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return Path{}, fmt.Errorf("actor path %q: invalid port: %w", raw, err)
		}
		host = h
		port = uint16(p64)
	}

	segments := resolveSegments(splitNonEmpty(segmentsRaw))

	path := Path{Scheme: scheme, System: system, Host: host, Port: port, Segments: segments}
	if uidPart != "" {
		uid, err := strconv.ParseUint(uidPart, 10, 64)
		if err != nil {
			return Path{}, fmt.Errorf("actor path %q: invalid uid: %w", raw, err)
		}
		path.UID = uid
		path.HasUID = true
	}
	return path, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveSegments applies "." and ".." relative segments.
func resolveSegments(raw []string) []string {
	var out []string
	for _, seg := range raw {
		switch seg {
		case ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	return out
}
