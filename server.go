package bserve

import (
	"context"
	"crypto/tls"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

// Binding is a listening endpoint. It is secure when it has a certificate provider.
type Binding struct {
	Address       string
	Port          int
	Certificates  CertificateProvider
	MinTLSVersion uint16
}

func (b Binding) secure() bool { return b.Certificates != nil }

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger, the default logs to the standard logger.
func WithLogger(logs Logger) Option {
	return func(s *Server) { s.logs = logs }
}

// WithBinding adds a listening endpoint.
func WithBinding(b Binding) Option {
	return func(s *Server) { s.bindings = append(s.bindings, b) }
}

// WithSecureUpgrade sets the initial upgrade mode of plaintext bindings.
func WithSecureUpgrade(mode SecureUpgrade) Option {
	return func(s *Server) { s.SetSecureUpgrade(mode) }
}

// WithStrictTransport sets the initial HSTS settings of secure bindings.
func WithStrictTransport(st StrictTransport) Option {
	return func(s *Server) { s.SetStrictTransport(st) }
}

// WithBodyLimits sets how large a request body may grow in memory before it is spilled to disk, and how
// large it may grow at all. A negative maximum disables the limit.
func WithBodyLimits(memory, maximum int64) Option {
	return func(s *Server) { s.maxMemoryBody, s.maxBody = memory, maximum }
}

// WithMiddleware adds middleware around the router tree.
func WithMiddleware(m ...Middleware) Option {
	return func(s *Server) { s.mws = append(s.mws, m...) }
}

// WithStdMiddleware adds standard library middleware in front of everything else, such as tracing.
func WithStdMiddleware(m ...StdMiddleware) Option {
	return func(s *Server) { s.stdMws = append(s.stdMws, m...) }
}

// WithTempDir sets the directory for spilled request bodies, the default is the system's.
func WithTempDir(dir string) Option {
	return func(s *Server) { s.tempDir = dir }
}

// WithMaxHeadSize limits the size of the request line and header.
func WithMaxHeadSize(n int) Option {
	return func(s *Server) { s.maxHead = n }
}

// WithResponseBufferLimit limits the size of buffered responses, -1 for no limit.
func WithResponseBufferLimit(n int) Option {
	return func(s *Server) { s.bufLimit = n }
}

// Server serves a router tree on one or more bindings. Every connection is handled by its own goroutine.
type Server struct {
	root     Router
	logs     Logger
	bindings []Binding
	mws      []Middleware
	stdMws   []StdMiddleware

	maxMemoryBody int64
	maxBody       int64
	maxHead       int
	bufLimit      int
	tempDir       string

	upgrade    atomic.Int64
	hsts       atomic.Pointer[StrictTransport]
	securePort atomic.Int64

	mu        sync.Mutex
	listeners []net.Listener
	conns     map[*conn]struct{}
	closing   atomic.Bool
	wg        sync.WaitGroup
	cancel    context.CancelFunc
}

// New inits a server for the tree below root.
func New(root Router, opts ...Option) *Server {
	s := &Server{
		root:          root,
		logs:          NewStdLogger(log.Default()),
		maxMemoryBody: 65535,
		maxBody:       1 << 30,
		maxHead:       64 << 10,
		bufLimit:      -1,
		conns:         map[*conn]struct{}{},
	}

	s.SetSecureUpgrade(SecureUpgradeRedirect)
	s.SetStrictTransport(DefaultStrictTransport())

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetSecureUpgrade changes the upgrade mode, it applies to the next request.
func (s *Server) SetSecureUpgrade(mode SecureUpgrade) { s.upgrade.Store(int64(mode)) }

// SecureUpgrade returns the current upgrade mode.
func (s *Server) SecureUpgrade() SecureUpgrade { return SecureUpgrade(s.upgrade.Load()) }

// SetStrictTransport changes the HSTS settings, they apply to the next response.
func (s *Server) SetStrictTransport(st StrictTransport) { s.hsts.Store(&st) }

// StrictTransport returns the current HSTS settings.
func (s *Server) StrictTransport() StrictTransport { return *s.hsts.Load() }

// Addr returns the address binding i listens on, or nil before [Server.Start].
func (s *Server) Addr(i int) net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.listeners) {
		return nil
	}

	return s.listeners[i].Addr()
}

func (s *Server) handler(secure bool) http.Handler {
	std := ToStd(Chain(Dispatch(s.root), s.mws...), s.bufLimit, s.logs)

	// On secure bindings HSTS is the outermost wrapper.
	if secure {
		return ChainStd(std, append([]StdMiddleware{strictTransportMiddleware(s.StrictTransport)}, s.stdMws...)...)
	}

	mws := append(append([]StdMiddleware{}, s.stdMws...), upgradeMiddleware(s.SecureUpgrade, s.securePortOf))

	return ChainStd(std, mws...)
}

func (s *Server) securePortOf() (int, bool) {
	p := s.securePort.Load()
	return int(p), p > 0
}

// Start listens on every binding and accepts connections in the background until [Server.Shutdown].
func (s *Server) Start(ctx context.Context) error {
	if len(s.bindings) < 1 {
		return errors.New("bserve: no bindings configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lc net.ListenConfig
	lns := make([]net.Listener, 0, len(s.bindings))

	for _, b := range s.bindings {
		ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(b.Address, strconv.Itoa(b.Port)))
		if err != nil {
			for _, ln := range lns {
				_ = ln.Close()
			}

			return errors.Wrapf(err, "listen on %s:%d", b.Address, b.Port)
		}

		if b.secure() {
			if _, ok := s.securePortOf(); !ok {
				s.securePort.Store(int64(ln.Addr().(*net.TCPAddr).Port))
			}

			ln = tls.NewListener(ln, TLSConfig(b.Certificates, b.MinTLSVersion))
		}

		lns = append(lns, ln)
	}

	base, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel, s.listeners = cancel, lns

	for i, ln := range lns {
		h := s.handler(s.bindings[i].secure())

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.accept(base, ln, h, s.bindings[i].secure())
		}()
	}

	return nil
}

func (s *Server) accept(ctx context.Context, ln net.Listener, h http.Handler, secure bool) {
	for {
		rwc, err := ln.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return
			}

			s.logs.LogConnectionError(ln.Addr().String(), errors.Wrap(err, "accept"))
			time.Sleep(10 * time.Millisecond)

			continue
		}

		c := &conn{srv: s, rwc: rwc, handler: h, secure: secure}
		if !s.track(c, true) {
			_ = rwc.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(c, false)
			c.serve(ctx)
		}()
	}
}

func (s *Server) track(c *conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !add {
		delete(s.conns, c)
		return true
	}

	if s.closing.Load() {
		return false
	}

	s.conns[c] = struct{}{}

	return true
}

// closeIdle closes connections that wait for a next request, and every connection when force is set.
func (s *Server) closeIdle(force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.conns {
		if force || c.idle.Load() {
			_ = c.rwc.Close()
		}
	}
}

// Shutdown stops accepting connections and waits for requests in flight. Connections that are still busy
// when ctx is done are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	var errs error
	for _, ln := range s.listeners {
		errs = errors.CombineErrors(errs, ln.Close())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		s.closeIdle(false)

		select {
		case <-done:
			s.stop()
			return errs
		case <-ctx.Done():
			s.closeIdle(true)
			s.stop()
			<-done

			return errors.CombineErrors(errs, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *Server) stop() {
	if s.cancel != nil {
		s.cancel()
	}
}
