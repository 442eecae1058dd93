package http

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// poller wraps one epoll instance. Only the reactor goroutine touches it
// after construction.
type poller struct {
	epfd   int
	events []unix.EpollEvent
}

func newPoller(maxEvents int) (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &poller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, maxEvents),
	}, nil
}

func (p *poller) add(fd int, events uint32) error {
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// rearm re-enables an EPOLLONESHOT registration for the next event.
func (p *poller) rearm(fd int, events uint32) error {
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *poller) remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wait blocks until readiness or the timeout elapses. An interrupted wait
// reports zero events rather than an error.
func (p *poller) wait(timeoutMS int) (int, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMS)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("epoll_wait: %w", err)
	}
	return n, nil
}

func (p *poller) close() {
	unix.Close(p.epfd)
}
