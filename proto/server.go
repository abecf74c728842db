package proto

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/sbkit/sbscan/logger"
)

// Server carries the request/reply protocol over TCP. Each connection gets a
// receive goroutine that handles one request at a time; concurrent
// connections serialize on the scanner's internal locks, not here.
type Server struct {
	dispatcher *Dispatcher
	logger     logger.Logger

	ln     net.Listener
	conns  *xsync.MapOf[uint64, net.Conn]
	connID atomic.Uint64
	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewServer creates a Server over the given dispatcher.
func NewServer(d *Dispatcher, l logger.Logger) *Server {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Server{
		dispatcher: d,
		logger:     l,
		conns:      xsync.NewMapOf[uint64, net.Conn](),
	}
}

// Listen binds addr and starts accepting connections in the background.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln

	s.logger.Info("listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops accepting, closes every open connection, and waits for the
// per-connection goroutines to drain.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrServerClosed
	}

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}

	s.conns.Range(func(id uint64, conn net.Conn) bool {
		_ = conn.Close()
		return true
	})

	s.wg.Wait()

	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		id := s.connID.Add(1)
		s.conns.Store(id, conn)

		s.wg.Add(1)
		go s.serveConn(id, conn)
	}
}

func (s *Server) serveConn(id uint64, conn net.Conn) {
	defer s.wg.Done()
	defer s.conns.Delete(id)
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.Debug("connection opened", "conn_id", id, "remote", remote)

	for {
		req, err := readFrame(conn)
		if err != nil {
			s.logger.Debug("connection closed", "conn_id", id, "remote", remote, "reason", err)
			return
		}

		reply := s.dispatcher.Handle(req)

		if err := writeFrame(conn, reply); err != nil {
			s.logger.Warn("reply write failed", "conn_id", id, "error", err)
			return
		}
	}
}
