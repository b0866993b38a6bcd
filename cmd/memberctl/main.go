// memberctl runs membership jobs from the command line against the same
// database the API uses.
//
//	memberctl --config=config/local.yaml upload members.xlsx --verify-iec --report out.xlsx
//	memberctl validate-id 8001015009087 9002150123088
//	memberctl --config=config/local.yaml iec sync
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "memberctl",
		Short:        "Membership administration tool",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "path to the configuration YAML file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newUploadCmd(opts),
		newValidateIDCmd(),
		newIECCmd(opts),
	)
	return root
}
