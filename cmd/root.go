package cmd

import (
	"fmt"
	"os"

	"github.com/akvlib/akv/cmd/kv"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "akv",
		Short: "asynchronous key-value client",
		Long: fmt.Sprintf(`akv (v%s)

A pipelined, single-connection client for Redis-protocol key-value
servers, built on a non-blocking reactor.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of akv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("akv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
