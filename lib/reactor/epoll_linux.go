//go:build linux

package reactor

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// epollPoller implements Poller on top of epoll, using an eventfd to
// interrupt a blocked wait
type epollPoller struct {
	epfd   int
	wakefd int
}

// NewPoller creates the platform poller
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %v", err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("reactor: eventfd: %v", err)
	}

	p := &epollPoller{epfd: epfd, wakefd: wakefd}
	if err := p.Add(wakefd, true, false); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(wakefd)
		return nil, err
	}
	return p, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see Poller)
// --------------------------------------------------------------------------

func (p *epollPoller) Add(fd int, read, write bool) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: epollBits(read, write),
		Fd:     int32(fd),
	})
}

func (p *epollPoller) Mod(fd int, read, write bool) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: epollBits(read, write),
		Fd:     int32(fd),
	})
}

func (p *epollPoller) Del(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Wait(events []Event) (int, error) {
	sys := make([]unix.EpollEvent, len(events))

	for {
		n, err := unix.EpollWait(p.epfd, sys, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("reactor: epoll_wait: %v", err)
		}

		out := 0
		for i := 0; i < n; i++ {
			fd := int(sys[i].Fd)
			if fd == p.wakefd {
				p.drainWake()
				continue
			}
			ev := &events[out]
			ev.FD = fd
			// HUP/ERR conditions are surfaced as both readable and writable
			// so the owner discovers the error on its next socket operation
			errCond := sys[i].Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0
			ev.Readable = sys[i].Events&unix.EPOLLIN != 0 || errCond
			ev.Writable = sys[i].Events&unix.EPOLLOUT != 0 || errCond
			out++
		}
		return out, nil
	}
}

func (p *epollPoller) Wakeup() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(p.wakefd, buf[:])
	if err == unix.EAGAIN {
		// counter saturated, a wakeup is already pending
		return nil
	}
	return err
}

func (p *epollPoller) Close() error {
	_ = unix.Close(p.wakefd)
	return unix.Close(p.epfd)
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func (p *epollPoller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakefd, buf[:]); err != nil {
			return
		}
	}
}

func epollBits(read, write bool) uint32 {
	var bits uint32 = unix.EPOLLRDHUP
	if read {
		bits |= unix.EPOLLIN
	}
	if write {
		bits |= unix.EPOLLOUT
	}
	return bits
}
