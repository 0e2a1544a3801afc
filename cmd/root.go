package cmd

import (
	"log/slog"
	"os"

	"github.com/encodeous/manasim/state"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "manasim",
	Short: "Mana network simulator",
	Long: `manasim simulates a peer-to-peer network where nodes earn mana while they are active and lose it while they are gone.
It runs a fluctuating population of simulated nodes, and accepts registrations from outside over http.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func logLevel(cmd *cobra.Command) slog.Level {
	if ok, _ := cmd.Flags().GetBool("verbose"); ok {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "sim",
		Title: "Simulation",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "tools",
		Title: "Tools",
	})
	rootCmd.PersistentFlags().StringVarP(&state.ConfigPath, "config", "c", state.ConfigPath, "simulation config")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
}
