package resolve

import (
	"context"
	"sync"

	"github.com/lc/whereami/internal/log"
)

// Fallback composes children into a sequential "any, in order" group: each
// child is invoked to completion before the next one starts, and the first
// child to yield a candidate short-circuits the rest. Child errors are
// logged and treated as "no candidates" — resilience to any single provider
// failing is the point of having several. The group yields nothing when
// every child errors or comes up empty.
//
// Worst-case latency is the sum of the children's latencies.
func Fallback(children ...Resolver) Resolver {
	return &fallbackGroup{children: children}
}

type fallbackGroup struct {
	children []Resolver
}

func (g *fallbackGroup) Resolve(ctx context.Context, env *Env) <-chan Candidate {
	out := make(chan Candidate)
	go func() {
		defer close(out)
		for _, child := range g.children {
			if ctx.Err() != nil {
				return
			}
			c, ok := firstFrom(ctx, env, child)
			if !ok {
				continue
			}
			Send(ctx, out, c)
			return
		}
	}()
	return out
}

// firstFrom drains child until it yields a usable candidate or exhausts.
// Failed candidates are logged and skipped. The child is cancelled as soon
// as a candidate is taken.
func firstFrom(ctx context.Context, env *Env, child Resolver) (Candidate, bool) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for c := range child.Resolve(cctx, env) {
		if c.Err != nil {
			log.Debugf("fallback: %s: %v", c.Provider, c.Err)
			continue
		}
		return c, true
	}
	return Candidate{}, false
}

// Race composes children into a concurrent "any, first wins" group: all
// children start at once, the first candidate produced decides the group's
// result, and the remaining children are cancelled without being awaited —
// their in-flight network operations are abandoned. Child errors are logged
// and the group keeps waiting on the others. The group yields nothing when
// every child finishes empty.
//
// Worst-case latency is the slowest necessary child, at the cost of wasted
// work on the losers. When several children complete near-simultaneously
// the winner is whichever completion the scheduler observes first; no
// secondary ordering is guaranteed.
func Race(children ...Resolver) Resolver {
	return &raceGroup{children: children}
}

type raceGroup struct {
	children []Resolver
}

func (g *raceGroup) Resolve(ctx context.Context, env *Env) <-chan Candidate {
	out := make(chan Candidate)
	go func() {
		defer close(out)

		rctx, cancel := context.WithCancel(ctx)
		defer cancel()

		merged := make(chan Candidate)
		var wg sync.WaitGroup
		for _, child := range g.children {
			wg.Add(1)
			go func(r Resolver) {
				defer wg.Done()
				for c := range r.Resolve(rctx, env) {
					if !Send(rctx, merged, c) {
						return
					}
				}
			}(child)
		}
		go func() {
			wg.Wait()
			close(merged)
		}()

		for c := range merged {
			if c.Err != nil {
				log.Debugf("race: %s: %v", c.Provider, c.Err)
				continue
			}
			Send(ctx, out, c)
			// The deferred cancel abandons the losers; nothing waits on them.
			return
		}
	}()
	return out
}
