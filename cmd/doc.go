// Package cmd implements the command-line interface for the akv client.
// It provides a hierarchical command structure for running commands against
// a Redis-protocol server over a single asynchronous connection.
//
// The package is organized into several subpackages:
//
//   - kv: Commands issued over the connection (get, set, del, ping, raw, perf)
//   - util: Shared utilities for configuration and the CLI's connection session
//
// See akv -help for a list of all commands.
package cmd
