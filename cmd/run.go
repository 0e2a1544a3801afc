package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/encodeous/manasim/core"
	"github.com/encodeous/manasim/state"
	"github.com/encodeous/manasim/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation in real time",
	Long: `Ticks the network on the wall clock and serves the http api on the configured address.
Stops on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadConfig(state.ConfigPath)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}
		log, err := core.NewLogger(logLevel(cmd), "", cfg.LogPath)
		if err != nil {
			return err
		}

		broker, err := core.NewBroker(*cfg, time.Now(), log, nil)
		if err != nil {
			return err
		}
		defer broker.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			ticker := time.NewTicker(cfg.TickInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-broker.Done():
					return broker.Err()
				case now := <-ticker.C:
					err := broker.Tick(ctx, now)
					if errors.Is(err, state.ErrActionOverflow) {
						log.Warn("tick did not settle", "error", err)
					} else if err != nil && ctx.Err() == nil {
						return err
					}
				}
			}
		})

		if cfg.Listen != "" {
			srv := web.NewServer(cfg.Listen, web.NewHandler(broker, log))
			g.Go(func() error {
				log.Info("http api listening", "addr", cfg.Listen)
				err := srv.ListenAndServe()
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), state.RequestTimeout)
				defer cancel()
				return srv.Shutdown(shutdown)
			})
		}

		log.Info("simulation started",
			"root", cfg.Simulator.NodesRoot,
			"flex", cfg.Simulator.NodesFlex,
			"tick", cfg.TickInterval)
		err = g.Wait()
		log.Info("simulation stopped")
		return err
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("listen", "l", "", "address of the http api, overrides the config")
}
