package cmd

import (
	"github.com/encodeous/sospf/core"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a router",
	Long: `This will run the router described by the config and read operator commands from stdin.
Type "quit" to withdraw the router from the network, or send SIGINT to stop it without notice.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logPath, _ := cmd.Flags().GetString("log")
		debugAddr, _ := cmd.Flags().GetString("debug-addr")
		return core.Bootstrap(configPath, logPath, verbose, debugAddr)
	},
	SilenceUsage: true,
	GroupID:      "sospf",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().StringP("log", "l", "", "Also append logs to this file, overrides log_path in the config")
	runCmd.Flags().String("debug-addr", "", "Serve metrics on this address, e.g. 127.0.0.1:6060")
}
