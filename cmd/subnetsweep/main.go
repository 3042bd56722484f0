// Command subnetsweep discovers live hosts on the locally attached IPv4
// subnets and prints them as an inventory tree rooted at this machine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/HerbHall/subnetsweep/internal/config"
	"github.com/HerbHall/subnetsweep/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagBindings maps command-line flags onto settings keys.
var flagBindings = map[string]string{
	"verbose":     "log.verbosity",
	"report-file": "report.file",
}

func newRootCmd() *cobra.Command {
	var (
		settingsPath   string
		templateConfig bool
	)

	cmd := &cobra.Command{
		Use:   "subnetsweep <config-folder>",
		Short: "Discover live hosts on locally attached subnets",
		Long: "Reads a folder of credential records, then sweeps every subnet attached to this\n" +
			"machine with ICMP echo and TCP connect probes and prints the discovered hosts.",
		Version:       version.Short(),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(settingsPath, cmd.Flags())
			if err != nil {
				return err
			}
			if templateConfig {
				return writeTemplates(cmd, args[0])
			}
			return runScan(cmd.Context(), cmd.OutOrStdout(), args[0], settings)
		},
	}

	cmd.Flags().CountP("verbose", "v", "increase log verbosity (-v info, -vv debug)")
	cmd.Flags().StringP("report-file", "r", "", "also write the report to this file")
	cmd.Flags().BoolVarP(&templateConfig, "template-config", "t", false,
		"instead of scanning, fill the config folder with example records and exit")
	cmd.PersistentFlags().StringVar(&settingsPath, "settings", "",
		"settings file (default ./subnetsweep.yaml when present)")
	cmd.SetVersionTemplate(version.Info() + "\n")

	cmd.AddCommand(newHistoryCmd(&settingsPath))
	return cmd
}

// loadSettings reads the settings file and environment, then lets any
// explicitly bound flag override them.
func loadSettings(path string, flags *pflag.FlagSet) (config.Settings, error) {
	v, err := config.NewViper(path)
	if err != nil {
		return config.Settings{}, err
	}
	if err := bindFlags(v, flags); err != nil {
		return config.Settings{}, err
	}
	return config.New(v).Load()
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagBindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func writeTemplates(cmd *cobra.Command, dir string) error {
	written, err := config.WriteTemplates(dir)
	for _, path := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}
	return err
}
