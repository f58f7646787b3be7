// Command whereami prints the device's externally visible IP address.
//
// The address is obtained by asking third-party providers over DNS and
// HTTP and combining their answers with a caller-chosen strategy:
//
//	whereami                       - race all providers, print first answer
//	whereami -4                    - restrict the answer to IPv4
//	whereami --strategy fallback   - try providers in order instead
//	whereami --provider opendns --provider ipify
//	whereami check                 - ask every provider and compare answers
//	whereami providers             - list the builtin provider catalog
//
// Provider selection, strategy and timeouts can also be set persistently
// in ~/.whereami/config.yaml.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lc/whereami/internal/buildinfo"
	"github.com/lc/whereami/internal/config"
	"github.com/lc/whereami/pkg/pubip"
	"github.com/lc/whereami/pkg/resolve"
)

func main() {
	cfg, err := config.New().Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var (
		flagV4        bool
		flagV6        bool
		flagVerbose   bool
		flagTimeout   = cfg.Resolve.Timeout
		flagStrategy  = cfg.Resolve.Strategy
		flagProviders = cfg.Resolve.Providers
	)

	root := &cobra.Command{
		Use:   "whereami",
		Short: "Discover the device's public IP address",
		Long: `whereami asks third-party "what is my IP" providers over DNS and HTTP
and prints the first address obtained. Providers are raced by default;
with --strategy fallback they are tried one at a time in order.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if flagV4 && flagV6 {
				return fmt.Errorf("-4 and -6 are mutually exclusive")
			}

			r, err := composed(flagStrategy, providerNames(flagProviders))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var trace resolve.Trace
			opts := []resolve.Option{
				resolve.WithTimeout(flagTimeout),
				resolve.WithObserver(trace.Observer()),
			}
			switch {
			case flagV4:
				opts = append(opts, resolve.WithVersion(resolve.V4))
			case flagV6:
				opts = append(opts, resolve.WithVersion(resolve.V6))
			}

			env := resolve.NewEnv(cfg.Resolve.LookupTimeout)
			c, ok := resolve.FirstCandidate(ctx, r, env, opts...)
			if !ok {
				if flagVerbose {
					for _, lerr := range trace.Errors() {
						color.New(color.FgYellow).Fprintf(os.Stderr, "  %v\n", lerr)
					}
				}
				return fmt.Errorf("no provider answered")
			}

			fmt.Println(c.Addr)
			if flagVerbose {
				color.New(color.FgHiBlack).Fprintf(os.Stderr,
					"answered by %s (%d candidates seen, %d failures)\n",
					c.Provider, trace.Candidates(), trace.Failures())
			}
			return nil
		},
	}
	root.Flags().BoolVarP(&flagV4, "ipv4", "4", false, "resolve an IPv4 address only")
	root.Flags().BoolVarP(&flagV6, "ipv6", "6", false, "resolve an IPv6 address only")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "print provider attribution and failures")
	root.Flags().DurationVar(&flagTimeout, "timeout", flagTimeout, "overall resolution deadline")
	root.Flags().StringVar(&flagStrategy, "strategy", flagStrategy, `provider combination: "race" or "fallback"`)
	root.Flags().StringSliceVar(&flagProviders, "provider", flagProviders, "provider to query (repeatable; default: all)")

	// ---- check command ----
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Query every provider and compare their answers",
		Long: `Query each selected provider concurrently and show, per provider,
the address it reported or the reason it failed. Useful for spotting
broken providers or split-horizon answers.`,
		Example: "whereami check",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			names := providerNames(flagProviders)
			env := resolve.NewEnv(cfg.Resolve.LookupTimeout)

			type row struct {
				addr string
				err  string
			}
			rows := make([]row, len(names))

			g, ctx := errgroup.WithContext(context.Background())
			for i, name := range names {
				i, name := i, name
				g.Go(func() error {
					r, ok := pubip.Provider(name)
					if !ok {
						rows[i] = row{err: "unknown provider"}
						return nil
					}
					var trace resolve.Trace
					c, ok := resolve.FirstCandidate(ctx, r, env,
						resolve.WithTimeout(flagTimeout),
						resolve.WithObserver(trace.Observer()),
					)
					if !ok {
						rows[i] = row{err: firstError(&trace)}
						return nil
					}
					rows[i] = row{addr: c.Addr.String()}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Provider", "Transport", "Address", "Error"})
			table.SetBorder(false)
			for i, name := range names {
				transports, _, _ := pubip.Describe(name)
				table.Append([]string{name, transports, rows[i].addr, rows[i].err})
			}
			color.New(color.Bold).Println("PROVIDER ANSWERS:")
			table.Render()
			return nil
		},
	}

	// ---- providers command ----
	providersCmd := &cobra.Command{
		Use:     "providers",
		Short:   "List the builtin provider catalog",
		Example: "whereami providers",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Name", "Transport", "Targets"})
			table.SetHeaderColor(
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
			)
			table.SetBorder(false)
			for _, name := range pubip.Names() {
				transports, targets, _ := pubip.Describe(name)
				table.Append([]string{name, transports, targets})
			}
			table.Render()
			return nil
		},
	}

	// ---- version command ----
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
		},
	}

	root.AddCommand(checkCmd, providersCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// providerNames resolves the effective provider selection: the explicit
// list if given, otherwise the whole catalog.
func providerNames(selected []string) []string {
	if len(selected) > 0 {
		return selected
	}
	return pubip.Names()
}

// composed builds the selected providers into one resolver per the
// requested strategy.
func composed(strategy string, names []string) (resolve.Resolver, error) {
	rs, err := pubip.Resolvers(names...)
	if err != nil {
		return nil, err
	}
	switch strategy {
	case config.StrategyRace:
		return resolve.Race(rs...), nil
	case config.StrategyFallback:
		return resolve.Fallback(rs...), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

func firstError(t *resolve.Trace) string {
	errs := t.Errors()
	if len(errs) == 0 {
		return "no answer"
	}
	return errs[0].Error()
}
