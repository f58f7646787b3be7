// Package httplookup implements HTTP-backed public address lookups against
// the well-known "what is my IP" endpoints (api.ipify.org, icanhazip.com
// and friends). It plugs into the resolve engine.
package httplookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/lc/whereami/pkg/resolve"
)

// maxBodySize caps how much of a provider response is read. The bodies we
// care about are a few dozen bytes.
const maxBodySize = 64 << 10

var (
	// ErrBadStatus is returned when the endpoint answers with a non-2xx status.
	ErrBadStatus = fmt.Errorf("unexpected response status")
	// ErrNoAddress is returned when no address can be extracted from the body.
	ErrNoAddress = fmt.Errorf("no address in response body")
	// ErrNoTransport is returned when the invocation Env has no HTTP capability.
	ErrNoTransport = fmt.Errorf("no http transport in env")
)

// Error is the failure of an HTTP lookup. It unwraps to the underlying
// transport, status or parse error.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("http lookup %s: %v", e.URL, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Extract selects how a response body is turned into an address.
type Extract int

const (
	// ExtractPlainText treats the whitespace-trimmed body as the address.
	ExtractPlainText Extract = iota
	// ExtractTrimQuotes additionally strips wrapping double quotes.
	ExtractTrimQuotes
	// ExtractJSONIPField decodes the body as JSON and reads its "ip" field.
	ExtractJSONIPField
)

// Lookup is a single provider-specific HTTP query: one URL, one extraction
// rule. Immutable once constructed and stateless between invocations.
type Lookup struct {
	Provider string        // label carried on candidates, for diagnostics
	URL      string        // endpoint to GET
	Extract  Extract       // body parsing rule
	Timeout  time.Duration // optional cap for the whole lookup; zero means none
}

var _ resolve.Resolver = (*Lookup)(nil)

// Resolve issues exactly one GET and yields at most one candidate. There
// are no retries — fallback across providers is the combinators' job.
func (l *Lookup) Resolve(ctx context.Context, env *resolve.Env) <-chan resolve.Candidate {
	out := make(chan resolve.Candidate)
	go func() {
		defer close(out)

		if env == nil || env.HTTP == nil {
			resolve.Send(ctx, out, l.failed(ErrNoTransport))
			return
		}

		if l.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, l.Timeout)
			defer cancel()
		}

		addr, err := l.fetch(ctx, env.HTTP)
		if err != nil {
			resolve.Send(ctx, out, l.failed(err))
			return
		}
		resolve.Send(ctx, out, resolve.Candidate{Addr: addr, Provider: l.Provider})
	}()
	return out
}

func (l *Lookup) failed(err error) resolve.Candidate {
	return resolve.Candidate{Provider: l.Provider, Err: &Error{URL: l.URL, Err: err}}
}

func (l *Lookup) fetch(ctx context.Context, client resolve.Doer) (netip.Addr, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return netip.Addr{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return netip.Addr{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return netip.Addr{}, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return netip.Addr{}, err
	}
	return l.extract(body)
}

func (l *Lookup) extract(body []byte) (netip.Addr, error) {
	var text string
	switch l.Extract {
	case ExtractJSONIPField:
		var payload struct {
			IP string `json:"ip"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return netip.Addr{}, fmt.Errorf("%w: %v", ErrNoAddress, err)
		}
		text = payload.IP
	case ExtractTrimQuotes:
		text = strings.Trim(strings.TrimSpace(string(body)), `"`)
	default:
		text = strings.TrimSpace(string(body))
	}

	if text == "" {
		return netip.Addr{}, ErrNoAddress
	}
	addr, err := netip.ParseAddr(text)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrNoAddress, text)
	}
	return addr, nil
}
