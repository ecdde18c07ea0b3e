package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/TFMV/masquerade/pkg/core"
	"github.com/TFMV/masquerade/pkg/functions"
	"github.com/TFMV/masquerade/version"
)

const (
	defaultPreviewCount = 5
	maxPreviewCount     = 100
)

// ServerOptions configure the HTTP API.
type ServerOptions struct {
	Port    string
	Prefork bool
	// Functions backs /functions and previews. Required.
	Functions *functions.Registry
	// Gatherer is served at /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server holds the Fiber app instance
type Server struct {
	app  *fiber.App
	opts ServerOptions
	log  *zap.Logger
}

// NewServer initializes a new Fiber instance
func NewServer(opts ServerOptions) *Server {
	if opts.Port == "" {
		opts.Port = "5555"
	}
	if opts.Functions == nil {
		opts.Functions = functions.NewRegistry()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		IdleTimeout:           10 * time.Second,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		Prefork:               opts.Prefork,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{app: app, opts: opts, log: log}

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Masquerade API",
			"version": version.Version,
			"build":   version.BuildDate,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	app.Get("/functions", s.listFunctions)
	app.Get("/functions/:name", s.describeFunction)
	app.Get("/functions/:name/preview", s.previewFunction)

	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// GetApp returns the Fiber app, for tests.
func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) listFunctions(c *fiber.Ctx) error {
	return c.JSON(s.opts.Functions.Functions())
}

func (s *Server) describeFunction(c *fiber.Ctx) error {
	desc, err := s.opts.Functions.Describe(c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(desc)
}

// previewFunction invokes a function count times. Query arguments other
// than count are passed as parameters. Functions that read files or buckets
// are refused.
func (s *Server) previewFunction(c *fiber.Ctx) error {
	name := c.Params("name")
	desc, err := s.opts.Functions.Describe(name)
	if err != nil {
		return err
	}
	if desc.ReadsSources {
		return fiber.NewError(fiber.StatusForbidden, name+" reads external sources and cannot be previewed")
	}
	count := defaultPreviewCount
	params := make(map[string]any)

	var badCount error
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		if string(k) != "count" {
			params[string(k)] = string(v)
			return
		}
		n, err := strconv.Atoi(string(v))
		if err != nil || n < 1 || n > maxPreviewCount {
			badCount = fiber.NewError(fiber.StatusBadRequest, "count must be between 1 and "+strconv.Itoa(maxPreviewCount))
			return
		}
		count = n
	})
	if badCount != nil {
		return badCount
	}

	values := make([]any, 0, count)
	for i := 0; i < count; i++ {
		v, err := s.opts.Functions.Invoke(c.UserContext(), name, params)
		if err != nil {
			return err
		}
		values = append(values, v)
	}
	return c.JSON(fiber.Map{"function": name, "values": values})
}

// errorHandler maps generator errors to HTTP statuses.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, core.ErrUnknownFunction):
		code = fiber.StatusNotFound
	case errors.Is(err, core.ErrParameterMismatch),
		errors.Is(err, core.ErrInvalidPattern),
		errors.Is(err, core.ErrInvalidFormat),
		errors.Is(err, core.ErrInvalidRange):
		code = fiber.StatusBadRequest
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"class": core.Classify(err),
	})
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("Masquerade API is running", zap.String("port", s.opts.Port))
		errc <- s.app.Listen(":" + s.opts.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.log.Info("Received shutdown signal, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("Server shutdown successfully")
	return nil
}

// Shutdown stops the server, waiting for open requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
