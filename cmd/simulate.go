package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/encodeous/manasim/core"
	"github.com/encodeous/manasim/state"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the simulation on virtual time and print the final ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadConfig(state.ConfigPath)
		if err != nil {
			return err
		}
		ticks, _ := cmd.Flags().GetInt("ticks")
		step, _ := cmd.Flags().GetDuration("step")
		if seed, _ := cmd.Flags().GetUint64("seed"); seed != 0 {
			cfg.Simulator.Seed = seed
		}
		if ticks <= 0 || step <= 0 {
			return fmt.Errorf("%w: ticks and step must be positive", state.ErrConfig)
		}

		log, err := core.NewLogger(logLevel(cmd), "", cfg.LogPath)
		if err != nil {
			return err
		}
		start := time.UnixMilli(0)
		broker, err := core.NewBroker(*cfg, start, log, nil)
		if err != nil {
			return err
		}
		defer broker.Close()

		ctx := cmd.Context()
		now := start
		for range ticks {
			now = now.Add(step)
			err = broker.Tick(ctx, now)
			if errors.Is(err, state.ErrActionOverflow) {
				log.Warn("tick did not settle", "error", err)
			} else if err != nil {
				return err
			}
		}

		status, err := broker.Status(ctx)
		if err != nil {
			return err
		}
		online := make(map[state.NodeID]bool, len(status.Online))
		for _, id := range status.Online {
			online[id] = true
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tNAME\tMANA\tONLINE\n")
		for _, rec := range status.Nodes {
			fmt.Fprintf(w, "%s\t%s\t%d\t%t\n", rec.ID, rec.Name, rec.Mana, online[rec.ID])
		}
		err = w.Flush()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "simulated %s, %d nodes in the ledger, %d online\n",
			now.Sub(start), len(status.Nodes), len(status.Online))
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntP("ticks", "t", 1000, "number of ticks to run")
	simulateCmd.Flags().DurationP("step", "s", time.Second, "virtual time between ticks")
	simulateCmd.Flags().Uint64("seed", 0, "overrides the simulator seed")
}
