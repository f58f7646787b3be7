// Package dnslookup implements DNS-backed public address lookups: queries
// against the special names some resolver operators answer with the
// caller's own address (myip.opendns.com, o-o.myaddr.l.google.com,
// whoami.cloudflare). It builds on github.com/miekg/dns and plugs into the
// resolve engine.
package dnslookup

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/multierr"

	"github.com/lc/whereami/pkg/resolve"
)

var (
	// ErrNoAnswer is returned when a response carries no usable records.
	ErrNoAnswer = fmt.Errorf("no usable answer records")
	// ErrNoTransport is returned when the invocation Env has no DNS capability.
	ErrNoTransport = fmt.Errorf("no dns transport in env")
	// ErrNoServers is returned when a lookup has no servers configured.
	ErrNoServers = fmt.Errorf("no servers configured")
)

// Error is the failure of a whole DNS lookup, reported after every
// configured server has been tried. It unwraps to the per-server errors.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("dns lookup %q: %v", e.Name, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Method selects the record type queried and how answers become addresses.
type Method int

const (
	// MethodA extracts each answer A record as a candidate address.
	MethodA Method = iota
	// MethodAAAA extracts each answer AAAA record as a candidate address.
	MethodAAAA
	// MethodTXT parses each answer TXT record as a textual address.
	MethodTXT
)

func (m Method) qtype() uint16 {
	switch m {
	case MethodAAAA:
		return dns.TypeAAAA
	case MethodTXT:
		return dns.TypeTXT
	default:
		return dns.TypeA
	}
}

func (m Method) String() string {
	return dns.TypeToString[m.qtype()]
}

// Lookup is a single provider-specific DNS query: one name, one record
// type, one ordered list of candidate servers. Immutable once constructed
// and stateless between invocations, so it is safe to reuse across calls
// and across concurrently running groups.
type Lookup struct {
	Provider string        // label carried on candidates, for diagnostics
	Name     string        // name to query, e.g. "myip.opendns.com"
	Servers  []string      // resolver addresses (host:port), tried in order
	Method   Method        // record type and extraction rule
	Class    uint16        // query class; dns.ClassINET when zero
	Timeout  time.Duration // optional cap for the whole lookup; zero means none
}

var _ resolve.Resolver = (*Lookup)(nil)

// Resolve issues the query against each configured server until one
// answers; every parsed answer record becomes one candidate. Exactly one
// query is sent per server and there are no retries — fallback across
// providers is the combinators' job. If every server fails, the sequence
// carries a single failed candidate aggregating the per-server errors.
func (l *Lookup) Resolve(ctx context.Context, env *resolve.Env) <-chan resolve.Candidate {
	out := make(chan resolve.Candidate)
	go func() {
		defer close(out)

		if env == nil || env.DNS == nil {
			resolve.Send(ctx, out, l.failed(ErrNoTransport))
			return
		}
		if len(l.Servers) == 0 {
			resolve.Send(ctx, out, l.failed(ErrNoServers))
			return
		}

		if l.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, l.Timeout)
			defer cancel()
		}

		var errs error
		for _, server := range l.Servers {
			if ctx.Err() != nil {
				return
			}
			addrs, err := l.query(ctx, env.DNS, server)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", server, err))
				continue
			}
			for _, addr := range addrs {
				if !resolve.Send(ctx, out, resolve.Candidate{Addr: addr, Provider: l.Provider}) {
					return
				}
			}
			return
		}
		resolve.Send(ctx, out, l.failed(errs))
	}()
	return out
}

func (l *Lookup) failed(err error) resolve.Candidate {
	return resolve.Candidate{Provider: l.Provider, Err: &Error{Name: l.Name, Err: err}}
}

// query performs exactly one exchange against server.
func (l *Lookup) query(ctx context.Context, tr resolve.Exchanger, server string) ([]netip.Addr, error) {
	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(l.Name), l.Method.qtype())
	if l.Class != 0 {
		req.Question[0].Qclass = l.Class
	}

	resp, _, err := tr.ExchangeContext(ctx, req, server)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrNoAnswer)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: rcode %s", ErrNoAnswer, dns.RcodeToString[resp.Rcode])
	}

	addrs := parseAnswers(resp, l.Method)
	if len(addrs) == 0 {
		return nil, ErrNoAnswer
	}
	return addrs, nil
}

// parseAnswers extracts addresses of the requested method from the answer
// section. Records of other types (CNAMEs in particular) are skipped, as
// are TXT strings that do not parse as an address.
func parseAnswers(resp *dns.Msg, method Method) []netip.Addr {
	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		switch record := rr.(type) {
		case *dns.A:
			if method != MethodA {
				continue
			}
			if addr, ok := netip.AddrFromSlice(record.A); ok {
				addrs = append(addrs, addr.Unmap())
			}
		case *dns.AAAA:
			if method != MethodAAAA {
				continue
			}
			if addr, ok := netip.AddrFromSlice(record.AAAA); ok {
				addrs = append(addrs, addr)
			}
		case *dns.TXT:
			if method != MethodTXT {
				continue
			}
			addr, err := netip.ParseAddr(strings.TrimSpace(strings.Join(record.Txt, "")))
			if err != nil {
				continue
			}
			addrs = append(addrs, addr)
		}
	}
	return addrs
}
