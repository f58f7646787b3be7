package pubip_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sort"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lc/whereami/pkg/pubip"
	"github.com/lc/whereami/pkg/resolve"
	"github.com/lc/whereami/pkg/resolve/dnslookup"
	"github.com/lc/whereami/pkg/resolve/httplookup"
)

// deadExchanger refuses every exchange, simulating an unreachable network.
type deadExchanger struct{}

func (deadExchanger) ExchangeContext(context.Context, *dns.Msg, string) (*dns.Msg, time.Duration, error) {
	return nil, 0, errors.New("network is unreachable")
}

func TestCatalogNamesAreSorted(t *testing.T) {
	names := pubip.Names()
	require.NotEmpty(t, names)
	assert.True(t, sort.StringsAreSorted(names))

	for _, expected := range []string{"opendns", "google", "cloudflare", "ipify"} {
		assert.Contains(t, names, expected)
	}
}

func TestProviderLookup(t *testing.T) {
	for _, name := range pubip.Names() {
		r, ok := pubip.Provider(name)
		require.True(t, ok, name)
		require.NotNil(t, r, name)

		transports, targets, ok := pubip.Describe(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, transports, name)
		assert.NotEmpty(t, targets, name)
	}

	_, ok := pubip.Provider("nonesuch")
	assert.False(t, ok)
	_, _, ok = pubip.Describe("nonesuch")
	assert.False(t, ok)
}

func TestResolversRejectsUnknownNames(t *testing.T) {
	rs, err := pubip.Resolvers("opendns", "ipify")
	require.NoError(t, err)
	assert.Len(t, rs, 2)

	_, err = pubip.Resolvers("opendns", "nonesuch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonesuch")
}

func TestDefaultBuilds(t *testing.T) {
	assert.NotNil(t, pubip.Default())
}

// A provider whose DNS leg is down still answers through its HTTP leg.
func TestFallbackAcrossTransports(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("203.0.113.80\n"))
	}))
	defer srv.Close()

	r := resolve.Fallback(
		&dnslookup.Lookup{
			Provider: "dns-leg",
			Name:     "myip.example.org",
			Servers:  []string{"192.0.2.1:53"},
			Method:   dnslookup.MethodA,
		},
		&httplookup.Lookup{
			Provider: "http-leg",
			URL:      srv.URL,
			Extract:  httplookup.ExtractPlainText,
		},
	)
	env := &resolve.Env{DNS: deadExchanger{}, HTTP: srv.Client()}

	c, ok := resolve.FirstCandidate(context.Background(), r, env)
	require.True(t, ok)
	assert.Equal(t, "http-leg", c.Provider)
	assert.Equal(t, netip.MustParseAddr("203.0.113.80"), c.Addr)
}

func TestExhaustionAcrossProviders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := resolve.Fallback(
		&httplookup.Lookup{Provider: "a", URL: srv.URL},
		&httplookup.Lookup{Provider: "b", URL: srv.URL},
	)
	env := &resolve.Env{HTTP: srv.Client()}

	var trace resolve.Trace
	_, ok := resolve.First(context.Background(), r, env,
		resolve.WithObserver(trace.Observer()))

	assert.False(t, ok)
	assert.EqualValues(t, 2, trace.Failures())
	for _, err := range trace.Errors() {
		assert.ErrorIs(t, err, httplookup.ErrBadStatus)
	}
}
