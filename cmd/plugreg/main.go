// plugreg serves a plugin registry to coding agents over the Model Context
// Protocol, with an optional read-only HTTP API.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
