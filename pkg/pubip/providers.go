package pubip

import (
	"fmt"
	"sort"

	"github.com/miekg/dns"

	"github.com/lc/whereami/pkg/resolve"
	"github.com/lc/whereami/pkg/resolve/dnslookup"
	"github.com/lc/whereami/pkg/resolve/httplookup"
)

// entry describes one named provider: how to build its resolver and what
// to show about it in tooling.
type entry struct {
	build      func() resolve.Resolver
	transports string
	targets    string
}

// catalog is the static table of builtin providers. Endpoint data follows
// each operator's published "what is my IP" service.
var catalog = map[string]entry{
	"opendns": {
		build:      OpenDNS,
		transports: "dns",
		targets:    "myip.opendns.com @ resolver1/resolver2.opendns.com",
	},
	"google": {
		build:      Google,
		transports: "dns",
		targets:    "o-o.myaddr.l.google.com TXT @ ns1-ns4.google.com",
	},
	"cloudflare": {
		build:      Cloudflare,
		transports: "dns",
		targets:    "whoami.cloudflare TXT CH @ 1.1.1.1/1.0.0.1",
	},
	"ipify": {
		build:      Ipify,
		transports: "http",
		targets:    "https://api.ipify.org, https://api64.ipify.org",
	},
	"icanhazip": {
		build:      Icanhazip,
		transports: "http",
		targets:    "https://icanhazip.com",
	},
	"ifconfigco": {
		build:      IfconfigCo,
		transports: "http",
		targets:    "https://ifconfig.co/ip",
	},
	"ipinfo": {
		build:      Ipinfo,
		transports: "http",
		targets:    "https://ipinfo.io/json",
	},
}

// OpenDNS resolves through OpenDNS's myip responder: A records over the
// IPv4 resolvers, then AAAA over the IPv6 resolvers.
func OpenDNS() resolve.Resolver {
	return resolve.Fallback(
		&dnslookup.Lookup{
			Provider: "opendns",
			Name:     "myip.opendns.com",
			Servers:  []string{"208.67.222.222:53", "208.67.220.220:53"},
			Method:   dnslookup.MethodA,
		},
		&dnslookup.Lookup{
			Provider: "opendns",
			Name:     "myip.opendns.com",
			Servers:  []string{"[2620:0:ccc::2]:53", "[2620:0:ccd::2]:53"},
			Method:   dnslookup.MethodAAAA,
		},
	)
}

// Google resolves through Google's o-o.myaddr TXT responder, served by the
// authoritative ns1-ns4.google.com only.
func Google() resolve.Resolver {
	return resolve.Fallback(
		&dnslookup.Lookup{
			Provider: "google",
			Name:     "o-o.myaddr.l.google.com",
			Servers: []string{
				"216.239.32.10:53", "216.239.34.10:53",
				"216.239.36.10:53", "216.239.38.10:53",
			},
			Method: dnslookup.MethodTXT,
		},
		&dnslookup.Lookup{
			Provider: "google",
			Name:     "o-o.myaddr.l.google.com",
			Servers: []string{
				"[2001:4860:4802:32::a]:53", "[2001:4860:4802:34::a]:53",
			},
			Method: dnslookup.MethodTXT,
		},
	)
}

// Cloudflare resolves through the whoami.cloudflare TXT record, which
// lives in the CHAOS class.
func Cloudflare() resolve.Resolver {
	return &dnslookup.Lookup{
		Provider: "cloudflare",
		Name:     "whoami.cloudflare",
		Servers:  []string{"1.1.1.1:53", "1.0.0.1:53"},
		Method:   dnslookup.MethodTXT,
		Class:    dns.ClassCHAOS,
	}
}

// Ipify resolves through api.ipify.org, falling back to the dual-stack
// api64 endpoint.
func Ipify() resolve.Resolver {
	return resolve.Fallback(
		&httplookup.Lookup{
			Provider: "ipify",
			URL:      "https://api.ipify.org",
			Extract:  httplookup.ExtractPlainText,
		},
		&httplookup.Lookup{
			Provider: "ipify",
			URL:      "https://api64.ipify.org",
			Extract:  httplookup.ExtractPlainText,
		},
	)
}

// Icanhazip resolves through icanhazip.com.
func Icanhazip() resolve.Resolver {
	return &httplookup.Lookup{
		Provider: "icanhazip",
		URL:      "https://icanhazip.com",
		Extract:  httplookup.ExtractPlainText,
	}
}

// IfconfigCo resolves through ifconfig.co's plain-text endpoint.
func IfconfigCo() resolve.Resolver {
	return &httplookup.Lookup{
		Provider: "ifconfigco",
		URL:      "https://ifconfig.co/ip",
		Extract:  httplookup.ExtractPlainText,
	}
}

// Ipinfo resolves through ipinfo.io's JSON endpoint.
func Ipinfo() resolve.Resolver {
	return &httplookup.Lookup{
		Provider: "ipinfo",
		URL:      "https://ipinfo.io/json",
		Extract:  httplookup.ExtractJSONIPField,
	}
}

// Names returns the catalog's provider names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Provider returns a fresh resolver for the named catalog provider.
func Provider(name string) (resolve.Resolver, bool) {
	e, ok := catalog[name]
	if !ok {
		return nil, false
	}
	return e.build(), true
}

// Describe returns a provider's transport family and target endpoints for
// display purposes.
func Describe(name string) (transports, targets string, ok bool) {
	e, ok := catalog[name]
	if !ok {
		return "", "", false
	}
	return e.transports, e.targets, true
}

// Resolvers builds resolvers for the named providers, preserving order.
// Unknown names are an error.
func Resolvers(names ...string) ([]resolve.Resolver, error) {
	rs := make([]resolve.Resolver, 0, len(names))
	for _, name := range names {
		r, ok := Provider(name)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		rs = append(rs, r)
	}
	return rs, nil
}
