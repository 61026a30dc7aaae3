// Command bpak builds, signs, verifies, transport-encodes and inspects
// BPAK archives.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/provide-io/bpak/pkg/bpak"
	"github.com/provide-io/bpak/pkg/logging"
)

const version = "0.1.0"

var (
	rootCmd     *cobra.Command
	verbosity   int
	versionFlag bool
	logger      hclog.Logger
)

func getBuildTimestamp() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func init() {
	rootCmd = &cobra.Command{
		Use:   "bpak",
		Short: "Build, sign, verify and transport-encode BPAK archives",
		Long:  `bpak is the reference command-line tool for the BPAK container format.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.GetLogLevel()
			if verbosity == 0 {
				verbosity = logging.VerbosityFromEnv()
			}
			if verbosity > 0 {
				level = logging.LevelFromVerbosity(verbosity)
			}
			logger = logging.NewLogger("bpak", level, os.Stderr)
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "V", false, "show version information")

	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newSetCmd())
	rootCmd.AddCommand(newSignCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newTransportCmd())
	rootCmd.AddCommand(newCompareCmd())
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("bpak %s\n", version)
		fmt.Printf("Built: %s\n", getBuildTimestamp())
		os.Exit(0)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var berr *bpak.Error
		if errors.As(err, &berr) && berr.Kind != bpak.KindUnknown {
			os.Exit(int(berr.Kind))
		}
		os.Exit(1)
	}
}
