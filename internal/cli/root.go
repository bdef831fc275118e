package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Execute builds the command tree and runs it against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xssleech",
		Short: "Mass stored XSS scanner",
		Long: `xssleech - Mass stored XSS scanner

Crawls the given sites, submits payloads through every form it finds and
re-fetches the page to confirm the payload was stored and rendered unescaped.

WARNING: Use this tool only against systems you have explicit permission to test.
Unauthorized access to computer systems is illegal.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScan,
	}

	// Shared flags
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./xssleech.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file (rotated)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored console output")

	addScanFlags(rootCmd)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunsCmd())
	return rootCmd
}

func addScanFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	// Target flags
	flags.StringP("url", "u", "", "Single URL/domain to test")
	flags.StringP("list", "l", "", "File containing list of URLs/domains to test")
	flags.StringP("payloads", "p", "", "File containing custom payloads")
	flags.String("tamper", "", "Payload tampers, comma-separated (mixedcase, space2slash, uppercase)")

	// Crawl flags
	flags.IntP("concurrency", "c", 15, "Number of concurrent requests")
	flags.Float64P("delay", "d", 1, "Delay between requests in seconds")
	flags.IntP("retries", "r", 1, "Number of retries for failed requests")
	flags.Int("depth", 0, "Crawl depth (0 = current page only)")
	flags.Int("max-pages", 20, "Maximum pages to crawl per domain")
	flags.Float64("verify-delay", 3, "Delay between injection and verification in seconds")
	flags.Float64("start-delay", 3, "Pause in seconds before the scan starts")

	// Connection flags
	flags.Float64P("timeout", "t", 15, "Timeout in seconds per request")
	flags.String("proxy", "", "Proxy URL (http://host:port or socks5://host:port)")
	flags.Float64("rate-limit", 0, "Maximum requests per second (0 = unlimited)")
	flags.Bool("random-agent", false, "Use a random User-Agent for every request")
	flags.String("user-agent", "", "Fixed User-Agent header")

	// Output flags
	flags.StringP("output", "o", "", "File to save vulnerable URLs")
	flags.String("format", "text", "Output file format (text, json)")
	flags.String("db", "", "SQLite file to archive the run and its findings")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xssleech %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
