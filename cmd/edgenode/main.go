// Command edgenode runs a Sparkplug B edge node: it publishes NBIRTH/
// NDATA/DDATA/NDEATH over one or more MQTT brokers, answers NCMD/DCMD
// commands, and serves health and Prometheus endpoints.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
