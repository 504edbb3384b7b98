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
	"context"
	"net"
)

// LookupFunc returns all addresses for a host. Injectable so resolution
// policy can be tested without real DNS.
type LookupFunc func(ctx context.Context, host string) ([]net.IP, error)

// SystemLookup resolves through the default system resolver.
func SystemLookup(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// ResolveIP picks a single address for host. When ipv6Only is set only IPv6
// addresses are considered. Otherwise IPv4 always wins over IPv6 when both
// families are present; this ordering is a policy invariant, not an accident
// of resolver output.
func ResolveIP(ctx context.Context, lookup LookupFunc, host string, ipv6Only bool) (net.IP, error) {
	if lookup == nil {
		lookup = SystemLookup
	}
	ips, err := lookup(ctx, host)
	if err != nil {
		return nil, WrapError(KindDNS, err, "resolving %q", host)
	}

	var v4, v6 []net.IP
	for _, ip := range ips {
		if ip.To4() != nil {
			v4 = append(v4, ip)
		} else {
			v6 = append(v6, ip)
		}
	}

	if ipv6Only {
		if len(v6) == 0 {
			return nil, Errorf(KindDNS, "no IPv6 address found for %q", host)
		}
		return v6[0], nil
	}
	ordered := append(v4, v6...)
	if len(ordered) == 0 {
		return nil, Errorf(KindDNS, "no IP address found for %q", host)
	}
	return ordered[0], nil
}
