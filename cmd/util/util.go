package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/akvlib/akv/common"
	"github.com/akvlib/akv/lib/reactor"
	"github.com/akvlib/akv/lib/resp"
	"github.com/akvlib/akv/redis"
	"github.com/joho/godotenv"
	"github.com/jpillora/backoff"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var lg = logger.GetLogger("cmd")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "address"
	cmd.PersistentFlags().String(key, "localhost:6379", WrapString("The address of the server in host:port form"))

	key = "password"
	cmd.PersistentFlags().String(key, "", WrapString("Password sent via AUTH after connecting (empty disables authentication)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("How many seconds to wait for a single reply"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How often to retry the initial connect"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Log level (debug, info, warn, error)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to disable Nagle's algorithm on the connection"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval in seconds (0 disables keepalive probes)"))

	key = "tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time in seconds (-1 keeps the kernel default)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The socket receive buffer size in KB (0 keeps the kernel default)"))

	key = "write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The socket send buffer size in KB (0 keeps the kernel default)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("akv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Address:       viper.GetString("address"),
		Password:      viper.GetString("password"),
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
		Socket: common.SocketConf{
			ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
			WriteBufferSize: viper.GetInt("write-buffer") * 1024,
		},
		TCP: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("tcp-linger"),
		},
		LogLevel: viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// Session owns the event loop and the single connection the CLI talks
// through. Connect retries (with backoff) and reply timeouts live here, in
// the caller's layer - the connection core itself never retries.
type Session struct {
	cfg  *common.ClientConfig
	loop *reactor.Loop
	conn *redis.Conn
}

// OpenSession starts an event loop, connects and authenticates
func OpenSession(cfg *common.ClientConfig) (*Session, error) {
	if err := common.InitLoggers(cfg.LogLevel); err != nil {
		return nil, err
	}

	poller, err := reactor.NewPoller()
	if err != nil {
		return nil, err
	}
	loop := reactor.NewLoop(poller)
	loop.Start()

	attempts := cfg.RetryCount
	if attempts < 1 {
		attempts = 1
	}
	bo := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    2 * time.Second,
		Jitter: true,
	}

	var conn *redis.Conn
	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, lastErr = connectOnce(cfg, loop)
		if lastErr == nil {
			break
		}
		lg.Warningf("connect attempt %d/%d failed: %v", i+1, attempts, lastErr)
		if i < attempts-1 {
			time.Sleep(bo.Duration())
		}
	}
	if conn == nil {
		loop.Stop()
		return nil, fmt.Errorf("failed to connect to %s after %d attempts: %v", cfg.Address, attempts, lastErr)
	}

	s := &Session{cfg: cfg, loop: loop, conn: conn}

	// credentials are part of the connection identity; the AUTH payload is
	// an ordinary command through the normal pipeline
	if cfg.Password != "" {
		if _, err := s.Do("AUTH", cfg.Password); err != nil {
			s.Close()
			return nil, fmt.Errorf("authentication failed: %v", err)
		}
	}

	return s, nil
}

// connectOnce creates one connection and waits for it to either connect or
// fail. A fresh Conn is needed per attempt; a Conn never leaves the Ended
// state.
func connectOnce(cfg *common.ClientConfig, loop *reactor.Loop) (*redis.Conn, error) {
	outcome := make(chan error, 1)

	conn := redis.NewConn(*cfg, loop,
		redis.WithConnectHandler(func(c *redis.Conn, err error) {
			select {
			case outcome <- nil:
			default:
			}
		}),
		redis.WithDisconnectHandler(func(c *redis.Conn, err error) {
			if err == nil {
				err = fmt.Errorf("connection closed")
			}
			select {
			case outcome <- err:
			default:
			}
		}),
	)

	timeout := time.Duration(cfg.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	select {
	case err := <-outcome:
		if err != nil {
			return nil, err
		}
	case <-time.After(timeout):
		conn.Disconnect()
		return nil, fmt.Errorf("timed out connecting to %s", cfg.Address)
	}

	// from here on, connection loss is only worth a log line
	conn.OnDisconnect(func(c *redis.Conn, err error) {
		if err != nil {
			lg.Warningf("connection to %s lost: %v", c.Address(), err)
		}
	})
	return conn, nil
}

// Conn exposes the underlying connection, e.g. for pipelined use
func (s *Session) Conn() *redis.Conn { return s.conn }

// Do sends one command and waits for its reply
func (s *Session) Do(args ...string) (resp.Reply, error) {
	type outcome struct {
		reply resp.Reply
		err   error
	}
	ch := make(chan outcome, 1)

	s.conn.Send(resp.AppendCommand(nil, args...),
		func(r resp.Reply) { ch <- outcome{reply: r} },
		func(err error) { ch <- outcome{err: err} },
	)

	timeout := time.Duration(s.cfg.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	select {
	case o := <-ch:
		return o.reply, o.err
	case <-time.After(timeout):
		return resp.Reply{}, fmt.Errorf("timed out after %v waiting for reply to %s", timeout, args[0])
	}
}

// Close disconnects and stops the event loop
func (s *Session) Close() {
	s.conn.Disconnect()
	s.loop.Stop()
}
