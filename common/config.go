package common

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds generic socket buffer settings applied to every connection
type SocketConf struct {
	// ReadBufferSize is the kernel receive buffer size in bytes (0 = kernel default).
	// It also bounds the chunk size used when draining a readable socket.
	ReadBufferSize int
	// WriteBufferSize is the kernel send buffer size in bytes (0 = kernel default)
	WriteBufferSize int
}

// TCPConf holds TCP-specific tuning options
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm when true
	TCPNoDelay bool
	// TCPKeepAliveSec enables keep-alive probes with the given interval (0 = off)
	TCPKeepAliveSec int
	// TCPLingerSec sets SO_LINGER (-1 = kernel default)
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for a single client connection
type ClientConfig struct {
	// Address is the remote server address in host:port form
	Address string
	// Password is sent via AUTH after connecting (empty = no authentication)
	Password string

	// TimeoutSecond bounds how long the CLI waits for a single reply
	TimeoutSecond int
	// RetryCount is how often the CLI retries the initial connect
	RetryCount int

	// Socket tuning
	Socket SocketConf
	TCP    TCPConf

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Address", c.Address)
	addField("Authentication", fmt.Sprintf("%t", c.Password != ""))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", fmt.Sprintf("%d", c.RetryCount))

	addSection("Socket")
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Socket.ReadBufferSize))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Socket.WriteBufferSize))
	addField("TCP NoDelay", fmt.Sprintf("%t", c.TCP.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.TCP.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.TCP.TCPLingerSec))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
