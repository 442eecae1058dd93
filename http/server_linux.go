package http

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sys/unix"

	"github.com/flinthq/flint/pool"
)

// pollTimeoutMS bounds each epoll wait so the loop periodically re-checks
// the running flag. It drives no protocol logic.
const pollTimeoutMS = 250

// connEvents registers a reactor-mode socket edge-triggered and one-shot:
// each readiness event must drain all available bytes, then re-arm.
const connEvents = unix.EPOLLIN | unix.EPOLLET | unix.EPOLLONESHOT

// Server accepts connections on a raw listening socket and drives each one
// through exactly one request/response cycle.
type Server struct {
	cfg    Config
	router *Router
	log    *slog.Logger

	running atomic.Bool
	started atomic.Bool

	listenFD int
	poller   *poller
	pool     *pool.Pool

	// conns is the reactor-mode arena: framing state per socket, keyed by
	// fd, touched only by the reactor goroutine. A slot is removed in the
	// same step that closes its socket.
	conns   map[int]*activeConn
	readBuf []byte

	metrics serverMetrics
}

// activeConn is one arena slot: a socket the reactor still owns, with its
// framing state persisted across readiness events.
type activeConn struct {
	fd     int
	id     uuid.UUID
	framer *Framer
}

type serverMetrics struct {
	accepted  metric.Int64Counter
	completed metric.Int64Counter
	failures  metric.Int64Counter
}

func newServerMetrics(meter metric.Meter) serverMetrics {
	accepted, _ := meter.Int64Counter("flint.connections.accepted",
		metric.WithDescription("Connections accepted from the listening socket"),
		metric.WithUnit("{connection}"))
	completed, _ := meter.Int64Counter("flint.requests.completed",
		metric.WithDescription("Requests framed, routed and responded to"),
		metric.WithUnit("{request}"))
	failures, _ := meter.Int64Counter("flint.connections.failed",
		metric.WithDescription("Connections torn down before a response was written"),
		metric.WithUnit("{connection}"))
	return serverMetrics{accepted: accepted, completed: completed, failures: failures}
}

func NewServer(cfg Config) *Server {
	cfg.fillDefaults()
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter("github.com/flinthq/flint/http")
	}
	return &Server{
		cfg:     cfg,
		router:  NewRouter(),
		log:     cfg.Logger,
		metrics: newServerMetrics(cfg.Meter),
	}
}

// AddEndpoint registers a handler for an exact method and path. It may only
// be called before Start; the route table is read-only once the server
// accepts traffic, which is what lets lookups run lock-free.
func (s *Server) AddEndpoint(method, path string, handler Handler) {
	if s.started.Load() {
		panic("http: AddEndpoint called after Start")
	}
	s.router.Add(method, path, handler)
}

// Start binds the listening socket and blocks the calling goroutine in the
// reactor loop until Stop is called. Socket creation, bind and listen
// failures abort initialization and are returned to the caller.
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrServerStarted
	}

	fd, err := listenSocket(s.cfg.Port)
	if err != nil {
		return err
	}
	s.listenFD = fd

	p, err := newPoller(s.cfg.MaxEvents)
	if err != nil {
		unix.Close(fd)
		return err
	}
	s.poller = p

	if err := p.add(fd, unix.EPOLLIN); err != nil {
		p.close()
		unix.Close(fd)
		return fmt.Errorf("epoll_ctl listen socket: %w", err)
	}

	if s.cfg.Mode == ModeWorkerPool {
		s.pool = pool.New(s.cfg.Workers)
	}
	s.conns = make(map[int]*activeConn)
	s.readBuf = make([]byte, s.cfg.ReadBufferSize)

	s.running.Store(true)
	s.log.Info("server listening", "port", s.cfg.Port, "mode", s.cfg.Mode)
	s.loop()
	return nil
}

// Stop clears the running flag; the reactor loop notices within one poll
// timeout, closes the listener, drains the worker pool and tears down any
// connections still tracked. Idempotent and safe from any goroutine.
func (s *Server) Stop() {
	s.running.Store(false)
}

func (s *Server) loop() {
	for s.running.Load() {
		n, err := s.poller.wait(pollTimeoutMS)
		if err != nil {
			s.log.Error("poll wait failed", "err", err)
			break
		}
		for i := 0; i < n; i++ {
			fd := int(s.poller.events[i].Fd)
			if fd == s.listenFD {
				s.acceptPending()
			} else {
				s.connReadable(fd)
			}
		}
	}
	s.shutdown()
}

func (s *Server) shutdown() {
	unix.Close(s.listenFD)
	if s.pool != nil {
		s.pool.Shutdown()
	}
	for fd, c := range s.conns {
		s.poller.remove(fd)
		unix.Close(fd)
		delete(s.conns, fd)
		s.log.Debug("connection dropped at shutdown", "conn", c.id)
	}
	s.poller.close()
	s.log.Info("server stopped")
}

// acceptPending drains the listen backlog until accept reports EAGAIN.
func (s *Server) acceptPending() {
	for {
		fd, _, err := unix.Accept4(s.listenFD, unix.SOCK_CLOEXEC)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		if err != nil {
			s.log.Error("accept failed", "err", err)
			return
		}

		s.metrics.accepted.Add(context.Background(), 1)
		if s.cfg.Mode == ModeWorkerPool {
			s.dispatchToPool(fd)
		} else {
			s.registerConn(fd)
		}
	}
}

// dispatchToPool transfers the socket wholesale to one worker; the reactor
// keeps no state for it afterwards.
func (s *Server) dispatchToPool(fd int) {
	connID := uuid.New()
	_, err := s.pool.Submit(func() (any, error) {
		return nil, s.handleBlocking(fd, connID)
	})
	if err != nil {
		// Pool is draining; close rather than leak the socket.
		unix.Close(fd)
	}
}

// registerConn puts a new socket under reactor control: non-blocking,
// edge-triggered, with fresh framing state in the arena.
func (s *Server) registerConn(fd int) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return
	}
	c := &activeConn{fd: fd, id: uuid.New(), framer: NewFramer(s.cfg.MaxRequestSize)}
	if err := s.poller.add(fd, connEvents); err != nil {
		s.log.Error("register connection failed", "err", err)
		unix.Close(fd)
		return
	}
	s.conns[fd] = c
}

// handleBlocking runs on a pool worker: read until the request is framed,
// route, write the whole response, close.
func (s *Server) handleBlocking(fd int, connID uuid.UUID) error {
	defer unix.Close(fd)

	f := NewFramer(s.cfg.MaxRequestSize)
	buf := make([]byte, s.cfg.ReadBufferSize)
	for !f.Complete() {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			s.connFailed(connID, fmt.Errorf("read: %w", err))
			return err
		}
		if n == 0 {
			s.connFailed(connID, ErrPeerClosed)
			return ErrPeerClosed
		}
		if err := f.Advance(buf[:n]); err != nil {
			s.connFailed(connID, err)
			return err
		}
	}

	return s.finish(fd, connID, f)
}

// connReadable drains a reactor-mode socket, advances its framing state and
// either re-arms it or completes the request.
func (s *Server) connReadable(fd int) {
	c, ok := s.conns[fd]
	if !ok {
		return
	}

	for !c.framer.Complete() {
		n, err := unix.Read(fd, s.readBuf)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err != nil {
			s.teardown(c, fmt.Errorf("read: %w", err))
			return
		}
		if n == 0 {
			s.teardown(c, ErrPeerClosed)
			return
		}
		if aerr := c.framer.Advance(s.readBuf[:n]); aerr != nil {
			s.teardown(c, aerr)
			return
		}
	}

	if !c.framer.Complete() {
		if err := s.poller.rearm(fd, connEvents); err != nil {
			s.teardown(c, fmt.Errorf("rearm: %w", err))
		}
		return
	}

	s.poller.remove(fd)
	delete(s.conns, fd)
	s.finish(fd, c.id, c.framer)
	unix.Close(fd)
}

// finish routes a complete request and writes the response. A framing-level
// parse failure or handler panic degrades to closing this connection only.
func (s *Server) finish(fd int, connID uuid.UUID, f *Framer) error {
	resp, err := s.respond(f.Bytes())
	if err != nil {
		s.connFailed(connID, err)
		return err
	}
	if err := writeFull(fd, []byte(resp)); err != nil {
		s.connFailed(connID, err)
		return err
	}
	s.metrics.completed.Add(context.Background(), 1)
	return nil
}

// respond parses the buffered request, consults the router and runs the
// matched handler, falling back to the canonical 404. A handler panic is
// confined here and reported as an error.
func (s *Server) respond(raw []byte) (out string, err error) {
	req, err := ParseRequest(raw)
	if err != nil {
		return "", err
	}

	handler, ok := s.router.Lookup(req.Method, req.Path)
	if !ok {
		return NotFoundResponse, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("http: handler panic: %v", r)
		}
	}()
	return handler(req.Method, req.Path), nil
}

// teardown invalidates the arena slot and closes the socket in one step.
func (s *Server) teardown(c *activeConn, err error) {
	s.poller.remove(c.fd)
	delete(s.conns, c.fd)
	unix.Close(c.fd)
	s.connFailed(c.id, err)
}

func (s *Server) connFailed(connID uuid.UUID, err error) {
	s.metrics.failures.Add(context.Background(), 1)
	s.log.Debug("connection torn down", "conn", connID, "err", err)
}
