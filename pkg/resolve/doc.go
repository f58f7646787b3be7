// Package resolve is the engine for discovering the device's externally
// visible IP address through third-party providers.
//
// A Resolver produces a lazy, cancellable sequence of candidate addresses
// for one invocation. Concrete lookups live in the dnslookup and httplookup
// subpackages; this package supplies the combinators that compose them and
// the driver that extracts a single result.
//
// # Composition
//
// Fallback tries children strictly in order and stops at the first one that
// answers. Race starts all children concurrently, takes the first answer,
// and cancels the rest. The two nest freely:
//
//	r := resolve.Race(
//		resolve.Fallback(providerA_HTTP, providerA_DNS),
//		resolve.Fallback(providerB_DNS, providerB_HTTP),
//	)
//	addr, ok := resolve.First(ctx, r, nil, resolve.WithTimeout(3*time.Second))
//
// # Failure model
//
// Lookup errors are data, not control flow: they travel on the candidate
// channel and combinators swallow them, because a provider failing is the
// expected operating mode of a multi-provider system. The only outward
// outcomes are "address found" and "no address" — exhaustion and overall
// timeout both report ok == false, never an error. Attach a Trace via
// WithObserver to see which providers failed and why.
//
// # Concurrency
//
// All state is per-invocation; resolvers and the transports in Env are safe
// to share. Cancelling an invocation propagates to every running lookup and
// never blocks on them.
package resolve
