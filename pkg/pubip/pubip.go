// Package pubip determines the device's externally visible IP address by
// asking third-party providers. It pairs a static catalog of well-known
// DNS and HTTP providers with the resolve engine's combinators, and offers
// zero-configuration entry points for the common case:
//
//	if addr, ok := pubip.Addr(ctx); ok {
//		fmt.Println("public ip address:", addr)
//	}
//
// Callers with specific needs can pick providers from the catalog (or
// build their own lookups) and compose them with resolve.Fallback and
// resolve.Race directly.
package pubip

import (
	"context"
	"net/netip"

	"github.com/lc/whereami/pkg/resolve"
)

// Default returns the builtin strategy: race every catalog provider, each
// internally falling back across its transport variants. A fresh resolver
// is built per call; resolvers are stateless and may also be reused.
func Default() resolve.Resolver {
	rs, err := Resolvers(Names()...)
	if err != nil {
		// The catalog names itself; this cannot fail.
		panic(err)
	}
	return resolve.Race(rs...)
}

// Addr attempts to determine the device's public IP address using all
// builtin providers, best effort. ok is false when no provider produced
// an address — an expected outcome, not an error.
func Addr(ctx context.Context) (netip.Addr, bool) {
	return resolve.First(ctx, Default(), nil)
}

// AddrV4 is Addr restricted to IPv4.
func AddrV4(ctx context.Context) (netip.Addr, bool) {
	return resolve.First(ctx, Default(), nil, resolve.WithVersion(resolve.V4))
}

// AddrV6 is Addr restricted to IPv6.
func AddrV6(ctx context.Context) (netip.Addr, bool) {
	return resolve.First(ctx, Default(), nil, resolve.WithVersion(resolve.V6))
}
