package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/dyndns/internal/config"
)

// options holds the flags shared by every provider subcommand.
type options struct {
	once   bool
	dryRun bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "dyndns",
		Short: "Keep a DNS A record pointed at this host's public address",
		Long: `dyndns resolves the host's public IPv4 address through the OpenDNS echo
service, compares it with the published A record and, when they differ,
updates the record at the DNS provider using a credential read from Vault.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&opts.once, "once", false, "Run a single cycle and exit")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Log intended updates without calling the provider")

	root.AddCommand(
		newProviderCmd(opts, config.ProviderCloudflare, "cloudflare [ZONE_ID] ZONE RECORD",
			"Track a record in a Cloudflare zone"),
		newProviderCmd(opts, config.ProviderGoogle, "google PROJECT ZONE RECORD",
			"Track a record in a Google Cloud DNS managed zone"),
		newProviderCmd(opts, config.ProviderRFC2136, "rfc2136 ZONE RECORD",
			"Track a record on a server that accepts RFC 2136 dynamic updates"),
		newProviderCmd(opts, config.ProviderRoute53, "route53 [HOSTED_ZONE_ID] ZONE RECORD",
			"Track a record in an AWS Route 53 hosted zone"),
		newVersionCmd(),
	)

	return root
}

// newProviderCmd builds the subcommand for one provider variant. Argument
// count is checked by config.ParseTarget so every variant reports
// config.ErrArgCount the same way.
func newProviderCmd(opts *options, providerType, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := config.ParseTarget(providerType, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), target, *opts)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dyndns %s\n", Version)
			fmt.Fprintf(out, "Build date: %s\n", BuildDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			return nil
		},
	}
}
