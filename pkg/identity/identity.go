// Package identity maps raw peer-reported address strings to canonical node
// identities. Inputs are always literal addresses; no DNS resolution happens
// here.
package identity

import "strings"

// Endpoint is a parsed network address. Port is empty when the raw string
// carried none.
type Endpoint struct {
	Host string
	Port string
}

// IsValid reports whether the endpoint carries a usable host.
func (e Endpoint) IsValid() bool {
	return e.Host != ""
}

// HostKey returns the bare-host lookup key.
func (e Endpoint) HostKey() string {
	return e.Host
}

// HostPortKey returns the host:port lookup key, substituting defaultPort when
// the endpoint has no port of its own.
func (e Endpoint) HostPortKey(defaultPort string) string {
	port := e.Port
	if port == "" {
		port = defaultPort
	}
	if port == "" {
		return e.Host
	}
	return e.Host + ":" + port
}

// ParseAddress splits a raw address string into host and optional port.
// Accepted forms: "host", "host:port", "[v6]", "[v6]:port", and bare IPv6
// literals. Brackets are stripped from IPv6 hosts. Malformed or empty input
// yields an invalid Endpoint so callers can skip it instead of aliasing.
func ParseAddress(raw string) Endpoint {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}
	}

	// Bracketed IPv6, with or without port.
	if strings.HasPrefix(raw, "[") {
		end := strings.Index(raw, "]")
		if end < 0 {
			return Endpoint{}
		}
		host := raw[1:end]
		if host == "" {
			return Endpoint{}
		}
		rest := raw[end+1:]
		if rest == "" {
			return Endpoint{Host: host}
		}
		if !strings.HasPrefix(rest, ":") || len(rest) == 1 {
			return Endpoint{}
		}
		return Endpoint{Host: host, Port: rest[1:]}
	}

	// More than one colon and no brackets: a bare IPv6 literal. The trailing
	// group is ambiguous with a port, so the whole string is the host.
	if strings.Count(raw, ":") > 1 {
		return Endpoint{Host: raw}
	}

	if i := strings.LastIndex(raw, ":"); i >= 0 {
		host, port := raw[:i], raw[i+1:]
		if host == "" || port == "" {
			return Endpoint{}
		}
		return Endpoint{Host: host, Port: port}
	}

	return Endpoint{Host: raw}
}

// NodeID returns the canonical id for a node: the durable collateral token
// when present, otherwise the normalized host. Empty when neither resolves.
func NodeID(collateral, rawAddress string) string {
	if collateral != "" {
		return collateral
	}
	return ParseAddress(rawAddress).Host
}
