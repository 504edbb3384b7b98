/*
Copyright (c) The clockprobe authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package probe

import (
	"net"
	"strconv"
	"strings"
)

// ParsedTarget is the result of splitting a user-supplied target string into
// host and optional port. It never survives past resolution.
type ParsedTarget struct {
	Host        string
	Port        uint16 // 0 when the input carried no port
	IPv6Literal bool
}

// PortOrDefault returns the parsed port, or def when none was given.
func (p *ParsedTarget) PortOrDefault(def uint16) uint16 {
	if p.Port == 0 {
		return def
	}
	return p.Port
}

// parsePort parses a decimal port and enforces the [1, 65535] range.
func parsePort(s string) (uint16, error) {
	raw, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, Errorf(KindUsage, "invalid port %q", s)
	}
	if raw == 0 || raw > 65535 {
		return 0, Errorf(KindUsage, "port out of range [1..65535]: %d", raw)
	}
	return uint16(raw), nil
}

// ParseTarget splits a target string into host and optional port without
// regexes. Supported forms:
//
//	hostname
//	hostname:123
//	1.2.3.4
//	1.2.3.4:123
//	[2001:db8::1]
//	[2001:db8::1]:123
//	2001:db8::1          (bare IPv6, no port allowed)
//
// A non-bracketed input with two or more colons is treated as a bare IPv6
// literal, and one that could equally be read as "v6addr:port" is rejected
// outright: ports on IPv6 require brackets.
func ParseTarget(input string) (*ParsedTarget, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, Errorf(KindUsage, "empty target")
	}

	// Bracketed IPv6: "[v6]" or "[v6]:port"
	if rest, ok := strings.CutPrefix(s, "["); ok {
		host, tail, ok := strings.Cut(rest, "]")
		if !ok {
			return nil, Errorf(KindUsage, "missing closing ']' in %q", s)
		}
		var port uint16
		switch {
		case tail == "":
		case strings.HasPrefix(tail, ":"):
			p, err := parsePort(tail[1:])
			if err != nil {
				return nil, err
			}
			port = p
		default:
			return nil, Errorf(KindUsage, "unexpected trailing characters in %q", s)
		}
		return &ParsedTarget{Host: host, Port: port, IPv6Literal: true}, nil
	}

	switch strings.Count(s, ":") {
	case 0:
		// hostname or IPv4 literal
		return &ParsedTarget{Host: s}, nil
	case 1:
		host, portStr, _ := strings.Cut(s, ":")
		if host == "" {
			return nil, Errorf(KindUsage, "missing host before port in %q", s)
		}
		port, err := parsePort(portStr)
		if err != nil {
			return nil, err
		}
		return &ParsedTarget{Host: host, Port: port}, nil
	default:
		// Bare IPv6 literal, port deliberately not supported. A string that
		// also reads as valid-IPv6 + ":port" is ambiguous and refused; the
		// caller has to bracket the address to attach a port.
		if ambiguousIPv6WithPort(s) {
			return nil, Errorf(KindUsage, "ambiguous IPv6 target %q: use [addr] or [addr]:port", s)
		}
		return &ParsedTarget{Host: s, IPv6Literal: true}, nil
	}
}

func ambiguousIPv6WithPort(s string) bool {
	i := strings.LastIndexByte(s, ':')
	prefix, tail := s[:i], s[i+1:]
	if _, err := parsePort(tail); err != nil {
		return false
	}
	ip := net.ParseIP(prefix)
	return ip != nil && ip.To4() == nil
}
