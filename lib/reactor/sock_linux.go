//go:build linux

package reactor

import (
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/akvlib/akv/common"
	"golang.org/x/sys/unix"
)

// NetSocket is a raw non-blocking TCP socket. Read and Write translate
// EAGAIN into ErrWouldBlock and a peer close into io.EOF, which is the
// contract the connection core is written against.
type NetSocket struct {
	fd     int
	closed atomic.Bool
}

// DialNonBlock opens a non-blocking connection attempt to address. It
// returns as soon as the connect is in progress; completion is observed via
// write readiness followed by SockErr.
func DialNonBlock(address string, sconf common.SocketConf, tconf common.TCPConf) (*NetSocket, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("reactor: resolve %s: %v", address, err)
	}

	family := unix.AF_INET
	if addr.IP.To4() == nil {
		family = unix.AF_INET6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("reactor: socket: %v", err)
	}

	if err := applySocketOptions(fd, sconf, tconf); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	sa, err := sockaddrFor(family, addr)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("reactor: connect %s: %v", address, err)
	}

	return &NetSocket{fd: fd}, nil
}

// --------------------------------------------------------------------------
// Socket operations
// --------------------------------------------------------------------------

// FD returns the underlying file descriptor
func (s *NetSocket) FD() int { return s.fd }

func (s *NetSocket) Read(p []byte) (int, error) {
	n, err := unix.Read(s.fd, p)
	switch {
	case err == unix.EAGAIN:
		return 0, ErrWouldBlock
	case err == unix.EINTR:
		return 0, ErrWouldBlock
	case err != nil:
		return 0, err
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}

func (s *NetSocket) Write(p []byte) (int, error) {
	n, err := unix.Write(s.fd, p)
	switch {
	case err == unix.EAGAIN:
		return 0, ErrWouldBlock
	case err == unix.EINTR:
		return 0, ErrWouldBlock
	case err != nil:
		return 0, err
	}
	return n, nil
}

// SockErr returns the pending socket error (SO_ERROR), nil when the
// in-progress connect succeeded
func (s *NetSocket) SockErr() error {
	v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

// Close releases the descriptor. Idempotent.
func (s *NetSocket) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(s.fd)
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func applySocketOptions(fd int, sconf common.SocketConf, tconf common.TCPConf) error {
	if tconf.TCPNoDelay {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("reactor: set TCP_NODELAY: %v", err)
		}
	}

	if sconf.ReadBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, sconf.ReadBufferSize); err != nil {
			return fmt.Errorf("reactor: set SO_RCVBUF: %v", err)
		}
	}

	if sconf.WriteBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, sconf.WriteBufferSize); err != nil {
			return fmt.Errorf("reactor: set SO_SNDBUF: %v", err)
		}
	}

	if tconf.TCPKeepAliveSec > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
			return fmt.Errorf("reactor: set SO_KEEPALIVE: %v", err)
		}
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, tconf.TCPKeepAliveSec); err != nil {
			return fmt.Errorf("reactor: set TCP_KEEPIDLE: %v", err)
		}
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, tconf.TCPKeepAliveSec); err != nil {
			return fmt.Errorf("reactor: set TCP_KEEPINTVL: %v", err)
		}
	}

	if tconf.TCPLingerSec >= 0 {
		lingerOpt := &unix.Linger{Onoff: 1, Linger: int32(tconf.TCPLingerSec)}
		if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, lingerOpt); err != nil {
			return fmt.Errorf("reactor: set SO_LINGER: %v", err)
		}
	}

	return nil
}

func sockaddrFor(family int, addr *net.TCPAddr) (unix.Sockaddr, error) {
	if family == unix.AF_INET {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], addr.IP.To4())
		return sa, nil
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return sa, nil
}
