package cmd

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/config"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/app"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "allergyaware",
	Short: "Allergy-aware ingredient verification",
	Long: `allergyaware finds a packaged food product on several retailer and
manufacturer pages, extracts the printed ingredient list from each, and only
reports ingredients that a majority of independent sources agree on.

Commands:
  verify  Verify one product and print the result as JSON
  mcp     Serve the verification tool over MCP stdio`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// initLogger keeps stdout for results: logs go to stderr, and only with --verbose
func initLogger() {
	log.SetFlags(log.Ltime)
	if verbose {
		log.SetOutput(os.Stderr)
		return
	}
	log.SetOutput(io.Discard)
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

func newApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verification.Debug = true
	}
	return app.New(cfg)
}
