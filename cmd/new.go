package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/encodeous/sospf/core"
	"github.com/encodeous/sospf/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new [id]",
	Short: "Create a router configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetUint16("port")

		cfg := state.LocalCfg{
			Id:   state.RouterId(args[0]),
			Host: host,
			Port: port,
		}
		err := state.LocalConfigValidator(&cfg)
		if err != nil {
			return err
		}
		return writeConfig(&cfg)
	},
	SilenceUsage: true,
	GroupID:      "init",
}

var neighbourCmd = &cobra.Command{
	Use:   "neighbour [id] [host] [port] [weight]",
	Short: "Add a neighbour to the router configuration",
	Long:  `The neighbour is attached when the router starts, and "start" on the terminal handshakes with it.`,
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.ReadLocalConfig(configPath)
		if err != nil {
			return err
		}
		port, err := strconv.ParseUint(args[2], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid port %q", args[2])
		}
		weight, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid weight %q", args[3])
		}
		cfg.Neighbours = append(cfg.Neighbours, state.NeighbourCfg{
			Id:     state.RouterId(args[0]),
			Host:   args[1],
			Port:   uint16(port),
			Weight: weight,
		})
		err = state.LocalConfigValidator(cfg)
		if err != nil {
			return err
		}
		return writeConfig(cfg)
	},
	SilenceUsage: true,
	GroupID:      "init",
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the router configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.ReadLocalConfig(configPath)
		if err != nil {
			return err
		}
		err = state.LocalConfigValidator(cfg)
		if err != nil {
			return err
		}
		cmd.Printf("%s is valid: router %s with %d neighbour(s)\n", configPath, cfg.Desc(), len(cfg.Neighbours))
		return nil
	},
	SilenceUsage: true,
	GroupID:      "sospf",
}

func writeConfig(cfg *state.LocalCfg) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, out, 0600)
}

func init() {
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(neighbourCmd)
	rootCmd.AddCommand(checkCmd)

	newCmd.Flags().String("host", state.DefaultHost, "Host the router listens on")
	newCmd.Flags().Uint16P("port", "p", state.DefaultPort, "Port the router listens on, 0 picks a free port")
}
