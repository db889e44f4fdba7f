// Package web is the HTTP front end: server-rendered pages for registration,
// login, listing, upload and download, with one-shot flash notices carried
// across redirects.
package web

import (
	"context"
	"errors"
	"html/template"
	"io"
	"iter"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/dmitrijs2005/duplofs/internal/logging"
	"github.com/dmitrijs2005/duplofs/internal/obs/metrics"
	"github.com/dmitrijs2005/duplofs/internal/obs/tracing"
	"github.com/dmitrijs2005/duplofs/internal/server/models"
)

const shutdownTimeout = 10 * time.Second

// UserService registers accounts and checks credentials.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
}

// FileStore is the bucket behind the listing, upload and download pages.
type FileStore interface {
	ListFiles(ctx context.Context) iter.Seq2[models.StoredFile, error]
	UploadFile(ctx context.Context, name string, body io.Reader, contentType string) error
	DownloadFile(ctx context.Context, name string) (*models.FileContent, error)
	Bucket() string
	Region() string
}

// Pinger reports database reachability for /readyz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the handlers call into. Metrics and DB are
// optional.
type Deps struct {
	Users   UserService
	Files   FileStore
	DB      Pinger
	Metrics *metrics.Metrics
}

// Options configure the listener and the session cookie.
type Options struct {
	Addr           string
	SecretKey      string
	SessionTTL     time.Duration
	CookieSecure   bool
	MaxUploadBytes int64
}

// Server is the fiber application with its routes and the collaborators the
// handlers use. Run serves it until the context is cancelled.
type Server struct {
	app    *fiber.App
	opts   Options
	deps   Deps
	secret []byte
	pages  map[string]*template.Template
	logger logging.Logger
}

// NewServer builds the fiber application and registers all routes.
func NewServer(opts Options, deps Deps, l logging.Logger) (*Server, error) {
	if deps.Users == nil || deps.Files == nil {
		return nil, errors.New("web: user service and file store are required")
	}
	if opts.SecretKey == "" {
		return nil, errors.New("web: secret key is required")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:   opts,
		deps:   deps,
		secret: []byte(opts.SecretKey),
		pages:  pages,
		logger: l.With("module", "web"),
	}

	cfg := fiber.Config{
		AppName:               "duplofs",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	}
	if opts.MaxUploadBytes > 0 {
		cfg.BodyLimit = int(opts.MaxUploadBytes)
	}
	s.app = fiber.New(cfg)
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
	}
	s.app.Use(tracing.Middleware())
	s.app.Use(s.requestLogger())
	s.app.Use(s.loadSession())

	s.app.Get("/livez", s.livez)
	s.app.Get("/readyz", s.readyz)
	if s.deps.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.deps.Metrics.Handler()))
	}

	s.app.Get("/register", s.registerPage)
	s.app.Post("/register", s.register)
	s.app.Get("/login", s.loginPage)
	s.app.Post("/login", s.login)
	s.app.Get("/logout", s.logout)

	s.app.Get("/", s.requireLogin(msgLoginRequired), s.index)
	s.app.Post("/", s.requireLogin(msgLoginRequired), s.upload)
	s.app.Get("/download/*", s.requireLogin(msgLoginToDownload), s.download)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Addr)

	if err := s.app.Listen(s.opts.Addr); err != nil {
		return err
	}

	return nil
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)
	}

	return c.Status(code).SendString(http.StatusText(code))
}

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		s.logger.Info(c.UserContext(), "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start).String(),
			"request_id", c.Locals("requestid"),
		)
		return err
	}
}
