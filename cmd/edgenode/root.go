package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollowoak/sparkplug-edge/internal/buildinfo"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "edgenode",
	Short:         "Sparkplug B MQTT edge node runtime",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `edgenode runs a Sparkplug B edge node against one or more MQTT brokers.

  edgenode run                 # start the node using config.yaml
  edgenode run -c /path/to.yaml
  edgenode version              # print build info`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (overrides search path)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(buildinfo.String())
			for k, v := range buildinfo.BuildInfo() {
				fmt.Printf("  %-12s %s\n", k+":", v)
			}
		},
	}
}
