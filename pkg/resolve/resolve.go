package resolve

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/miekg/dns"

	"github.com/lc/whereami/internal/log"
)

// Candidate is one result produced by a resolver: either an address or the
// error that stopped the lookup, never both. Errors travel on the same
// channel as addresses so combinators can inspect and swallow them instead
// of unwinding.
type Candidate struct {
	Addr     netip.Addr
	Provider string // label of the lookup that produced this candidate
	Err      error
}

// Failed reports whether the candidate carries a lookup error instead of an
// address.
func (c Candidate) Failed() bool { return c.Err != nil }

// Resolver is anything that can produce a lazy sequence of candidate
// addresses for a single invocation. The returned channel is closed when the
// sequence is exhausted. Producers must stop sending once ctx is done, so a
// consumer can walk away at any point without leaking goroutines. Every call
// starts a fresh, independent sequence.
type Resolver interface {
	Resolve(ctx context.Context, env *Env) <-chan Candidate
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(ctx context.Context, env *Env) <-chan Candidate

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, env *Env) <-chan Candidate {
	return f(ctx, env)
}

// Exchanger defines the interface for DNS message exchange.
// *dns.Client satisfies it.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, addr string) (r *dns.Msg, rtt time.Duration, err error)
}

// Doer defines the interface for issuing HTTP requests. *http.Client
// satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Env carries the transport capabilities lookups draw on. It is supplied per
// invocation rather than baked into a resolver, so the same composed
// resolver can be reused across calls with fresh handles. Lookups treat the
// transports as read-only; they are safe to share across concurrently
// running lookups.
type Env struct {
	DNS  Exchanger
	HTTP Doer
}

// DefaultTransportTimeout bounds each network operation made through the
// transports built by NewEnv and DefaultEnv.
const DefaultTransportTimeout = 5 * time.Second

// NewEnv returns an Env backed by real DNS and HTTP clients, each capped at
// the given per-operation timeout.
func NewEnv(timeout time.Duration) *Env {
	return &Env{
		DNS:  &dns.Client{Timeout: timeout},
		HTTP: &http.Client{Timeout: timeout},
	}
}

// DefaultEnv returns an Env with the default transport timeout.
func DefaultEnv() *Env {
	return NewEnv(DefaultTransportTimeout)
}

// Send delivers c on out unless ctx is cancelled first. It reports whether
// the candidate was delivered; producers should stop after a false return.
func Send(ctx context.Context, out chan<- Candidate, c Candidate) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// Version selects which IP address family a resolution accepts.
type Version int

const (
	// Any accepts both IPv4 and IPv6 addresses.
	Any Version = iota
	// V4 accepts IPv4 addresses only.
	V4
	// V6 accepts IPv6 addresses only.
	V6
)

// Matches reports whether addr belongs to the requested family.
// IPv4-mapped IPv6 addresses count as IPv4.
func (v Version) Matches(addr netip.Addr) bool {
	switch v {
	case V4:
		return addr.Unmap().Is4()
	case V6:
		return addr.Is6() && !addr.Is4In6()
	default:
		return true
	}
}

func (v Version) String() string {
	switch v {
	case V4:
		return "v4"
	case V6:
		return "v6"
	default:
		return "any"
	}
}

type options struct {
	timeout time.Duration
	version Version
	observe func(Candidate)
}

// Option configures a single call to First or FirstCandidate.
type Option func(*options)

// WithTimeout bounds the whole invocation. On expiry all in-flight lookups
// are cancelled and the call reports no address; a timeout is a legitimate
// empty outcome, not an error.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithVersion restricts the result to the given address family. Candidates
// of the wrong family are skipped the way failed lookups are.
func WithVersion(v Version) Option {
	return func(o *options) { o.version = v }
}

// WithObserver installs a diagnostic hook that sees every candidate,
// including failed ones. The hook cannot change the outcome. It may be
// called from multiple goroutines when racing.
func WithObserver(fn func(Candidate)) Option {
	return func(o *options) { o.observe = fn }
}

// First drives r and returns the first acceptable address. ok is false when
// every lookup failed or produced nothing, or the overall timeout fired;
// provider exhaustion is an expected operating condition, not an error.
func First(ctx context.Context, r Resolver, env *Env, opts ...Option) (netip.Addr, bool) {
	c, ok := FirstCandidate(ctx, r, env, opts...)
	return c.Addr, ok
}

// FirstCandidate is First with provider attribution. A nil env is replaced
// with DefaultEnv. The moment a result is taken, all still-running lookups
// are cancelled; no further candidate can surface for this invocation.
func FirstCandidate(ctx context.Context, r Resolver, env *Env, opts ...Option) (Candidate, bool) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if env == nil {
		env = DefaultEnv()
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := uuid.NewString()
	log.Debugf("resolve %s: started (version=%s)", id, o.version)

	for c := range r.Resolve(ctx, env) {
		if o.observe != nil {
			o.observe(c)
		}
		if c.Err != nil {
			log.Debugf("resolve %s: %s: %v", id, c.Provider, c.Err)
			continue
		}
		if !o.version.Matches(c.Addr) {
			log.Debugf("resolve %s: %s: dropped %s, wrong version", id, c.Provider, c.Addr)
			continue
		}
		log.Debugf("resolve %s: %s answered %s", id, c.Provider, c.Addr)
		return c, true
	}

	log.Debugf("resolve %s: exhausted without an address", id)
	return Candidate{}, false
}
