package cmd

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	coreconfig "github.com/VIER-CognitiveVoice/cvg-connect/core/config"
)

var (
	flagPort  string
	flagDebug bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cvg-connect",
	Short: "Connect a dialogue engine to the VIER Cognitive Voice Gateway",
	Long: `cvg-connect translates Cognitive Voice Gateway webhook callbacks into
dialogue engine events and dialogue engine responses back into Gateway
operations over the per-dialog callback API.`,
}

func init() {
	// Load environment variables first
	_ = godotenv.Load()

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(
		&flagPort,
		"port", "p",
		"",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)

	cobra.OnInitialize(initConfig)
}

// initConfig loads configuration from environment variables and applies
// command line overrides.
func initConfig() {
	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalln("Failed to load configuration: ", err.Error())
	}

	if flagPort != "" {
		cfg.App.Port = flagPort
	}
	if flagDebug {
		cfg.App.Debug = true
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
