package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Path to configuration file (yaml, json or toml)")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.Bool("json", DefaultJSONLog, "Log in JSON format")
	pf.String("proxy-host", "", "Proxy host")
	pf.Int("proxy-port", 0, "Proxy port")
	pf.String("proxy-user", "", "Proxy username (password from config, env or keyring)")
	pf.String("chrome-path", "", "Path to the Chrome executable")
	pf.Bool("headless", DefaultBrowserHeadless, "Run browsers headless")
	pf.Int("pool-size", DefaultBrowserPoolSize, "Number of pooled browser sessions")
	pf.Int("max-retries", DefaultMaxRetries, "Fetch attempts per unit")
	pf.Duration("timeout", DefaultFetchTimeout, "Hard timeout per proxy request")
	pf.Duration("batch-timeout", DefaultBatchTimeout, "Deadline for collecting a batch")
	pf.Duration("submit-delay", DefaultSubmitDelay, "Pause between batch submissions")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
}
