// Package common provides the shared building blocks used across the akv
// client: configuration structures with their pretty printers, and the
// logging setup used by every other package.
//
// The package focuses on:
//   - Declaring the ClientConfig consumed by the connection core and the CLI
//   - Socket and TCP tuning knobs applied by the raw-socket dialer
//   - A custom logger factory with per-package loggers and level control
//
// Key Components:
//
//   - ClientConfig: All parameters needed to open and operate a single
//     connection (address, credentials, timeout, socket tuning, log level).
//
//   - CreateLogger / InitLoggers: Logger factory producing consistently
//     formatted per-package loggers ("redis", "reactor", "cmd").
package common
