package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath = "router.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sospf",
	Short: "Simulated OSPF router",
	Long: `sospf runs one simulated link-state router per process.
Routers exchange hellos and link state advertisements over TCP, and every router computes shortest paths over its own copy of the link state database.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Configure a Router",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "sospf",
		Title: "Router Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "router config")
}
