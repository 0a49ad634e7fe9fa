package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPoolSize     = 64
	defaultGracePeriod  = 3 * time.Second
	defaultRootDir      = "public"
	defaultTemplatePath = "/classic.html"
)

func NewServer(config Config) Server {
	if config.PoolSize <= 0 {
		config.PoolSize = defaultPoolSize
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = defaultGracePeriod
	}
	if config.RootDir == "" {
		config.RootDir = defaultRootDir
	}
	if config.TemplatePath == "" {
		config.TemplatePath = defaultTemplatePath
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	s := &server{
		config:    config,
		whitelist: NewWhitelist(config.Whitelist),
		log:       config.Logger,
		done:      make(chan struct{}),
	}
	s.pool.SetLimit(config.PoolSize)
	return s
}

func (s *server) address() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start binds the listening socket and runs the accept loop in the
// background. Cancelling ctx closes the listener and ends the loop.
func (s *server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address(), err)
	}
	s.listener = listener

	ctx, s.cancel = context.WithCancel(ctx)

	s.log.Info("server started",
		"addr", listener.Addr().String(),
		"root", s.config.RootDir,
		"paths", s.whitelist.Paths(),
		"workers", s.config.PoolSize,
	)

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Error("error closing listener", "err", err)
		}
	}()

	go s.acceptLoop(ctx)
	return nil
}

func (s *server) acceptLoop(ctx context.Context) {
	defer close(s.done)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return // shutdown in progress
			}
			// the listener is presumed broken; no retry
			s.log.Error("error accepting connection", "err", err)
			s.loopErr = fmt.Errorf("accept: %w", err)
			s.cancel()
			return
		}

		// blocks while every worker is busy
		s.pool.Go(func() error {
			s.handleConnection(ctx, conn)
			return nil
		})
	}
}

// Wait blocks until the accept loop exits. It returns nil after a normal
// shutdown and the accept error when the listener failed.
func (s *server) Wait() error {
	<-s.done
	return s.loopErr
}

func (s *server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and gives in-flight connections the grace period
// to finish before closing them.
func (s *server) Stop() {
	s.stopOnce.Do(func() {
		if s.listener == nil {
			return
		}
		s.log.Info("shutting down")
		s.cancel()

		drained := make(chan struct{})
		go func() {
			<-s.done
			_ = s.pool.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-time.After(s.config.GracePeriod):
			s.log.Warn("grace period exceeded, closing connections in progress")
			s.connections.Range(func(key, value any) bool {
				if c, ok := value.(*connection); ok {
					c.Close()
					s.log.Debug("connection closed due to shutdown", "conn", key)
				}
				return true
			})
			<-drained
		}

		s.log.Info("shutdown complete")
	})
}

func (s *server) handleConnection(ctx context.Context, conn net.Conn) {
	c := &connection{id: uuid.NewString(), rwc: conn}
	log := s.log.With("conn", c.id, "remote", conn.RemoteAddr().String())

	s.connections.Store(c.id, c)
	defer func() {
		s.connections.Delete(c.id)
		if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Error("error closing connection", "err", err)
		}
	}()

	// Stop sweeps registered connections only after cancelling ctx.
	if ctx.Err() != nil {
		return
	}

	status, path, err := s.serve(conn)
	switch {
	case err == nil:
		log.Debug("request served", "path", path, "status", status)
	case status == 0:
		// malformed or missing request line: no response is sent
		log.Debug("connection dropped", "err", err)
	default:
		log.Error("error serving request", "path", path, "status", status, "err", err)
	}
}

// serve answers exactly one request on rw. It returns the status written,
// or 0 when no response was sent, along with the requested path.
func (s *server) serve(rw io.ReadWriter) (int, string, error) {
	req, err := readRequest(bufio.NewReader(rw))
	if err != nil {
		return 0, "", err
	}

	w := bufio.NewWriter(rw)

	if !s.whitelist.Contains(req.Path) {
		if err := writeHead(w, statusNotFound, "", 0); err != nil {
			return statusNotFound, req.Path, err
		}
		return statusNotFound, req.Path, w.Flush()
	}

	path := resolvePath(s.config.RootDir, req.Path)
	if req.Path == s.config.TemplatePath {
		status, err := s.serveTemplate(w, path)
		return status, req.Path, err
	}
	status, err := s.serveFile(w, path)
	return status, req.Path, err
}

func (s *server) serveTemplate(w *bufio.Writer, path string) (int, error) {
	body, contentType, err := renderTemplate(path, s.config.Now())
	if err != nil {
		return failResponse(w, err)
	}

	if err := writeHead(w, statusOK, contentType, int64(len(body))); err != nil {
		return statusOK, err
	}
	if _, err := w.Write(body); err != nil {
		return statusOK, err
	}
	return statusOK, w.Flush()
}

func (s *server) serveFile(w *bufio.Writer, path string) (int, error) {
	f, err := openFile(path)
	if err != nil {
		return failResponse(w, err)
	}
	defer f.Close()

	if err := writeHead(w, statusOK, f.contentType, f.size); err != nil {
		return statusOK, err
	}
	// never send more than Content-Length, even if the file grew
	if _, err := io.CopyN(w, f.file, f.size); err != nil {
		return statusOK, fmt.Errorf("copy %s: %w", path, err)
	}
	return statusOK, w.Flush()
}

// failResponse reports a fault on a whitelisted path before any byte of the
// response has been written.
func failResponse(w *bufio.Writer, cause error) (int, error) {
	if err := writeHead(w, statusInternalServerError, "", 0); err != nil {
		return statusInternalServerError, errors.Join(cause, err)
	}
	if err := w.Flush(); err != nil {
		return statusInternalServerError, errors.Join(cause, err)
	}
	return statusInternalServerError, cause
}
