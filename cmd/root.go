package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesmcarthur-3999/taskerino-sub000/cmd/benchmark"
	"github.com/jamesmcarthur-3999/taskerino-sub000/cmd/devices"
	"github.com/jamesmcarthur-3999/taskerino-sub000/cmd/record"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskerino-audio",
		Short: "Work session audio capture and processing",
	}

	setupFlags(rootCmd)

	subcommands := []*cobra.Command{
		record.Command(settings),
		devices.Command(),
		benchmark.Command(),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags binds persistent flags to their viper keys so command-line
// arguments override the config file.
func setupFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	cmd.PersistentFlags().String("device", "", "Capture device name (empty for default)")
	cmd.PersistentFlags().String("output", "", "Recording output directory")

	_ = viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("audio.capture.device", cmd.PersistentFlags().Lookup("device"))
	_ = viper.BindPFlag("output.path", cmd.PersistentFlags().Lookup("output"))
}
