package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/encodeous/manasim/state"
	"github.com/spf13/cobra"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generates a new node secret. Outputs the secret to stdout, the node id to stderr.",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := state.GenerateSecret()
		fmt.Println(secret.Encode())
		_, err := fmt.Fprintln(os.Stderr, secret.ID())
		return err
	},
	GroupID: "tools",
}

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Reads a node secret from stdin and prints its id and name",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(os.Stdin)
		ln, err := in.ReadString('\n')
		if err != nil && ln == "" {
			return err
		}
		secret, err := state.ParseNodeSecret(strings.TrimSpace(ln))
		if err != nil {
			return err
		}
		id := secret.ID()
		fmt.Printf("%s\t%s\n", id, state.NodeName(id))
		return nil
	},
	GroupID: "tools",
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the effective config as yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadConfig(state.ConfigPath)
		if err != nil {
			return err
		}
		out, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
	GroupID: "tools",
}

func init() {
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(idCmd)
	rootCmd.AddCommand(configCmd)
}
