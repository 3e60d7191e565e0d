//go:build !linux

package reactor

import "github.com/akvlib/akv/common"

// NetSocket is only implemented on Linux
type NetSocket struct{}

// DialNonBlock is only implemented on Linux
func DialNonBlock(address string, sconf common.SocketConf, tconf common.TCPConf) (*NetSocket, error) {
	return nil, ErrUnsupported
}

func (s *NetSocket) FD() int                     { return -1 }
func (s *NetSocket) Read(p []byte) (int, error)  { return 0, ErrUnsupported }
func (s *NetSocket) Write(p []byte) (int, error) { return 0, ErrUnsupported }
func (s *NetSocket) SockErr() error              { return ErrUnsupported }
func (s *NetSocket) Close() error                { return nil }
