// Package httpapi exposes the translation coordinator over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/sitetrans"
)

const maxBodyBytes = 4 << 20

// Options configures the HTTP server. Zero values fall back to defaults.
type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowOrigins    []string
}

// Server serves the translation API for one coordinator.
type Server struct {
	coord  *sitetrans.Coordinator
	logger zerolog.Logger
	opts   Options
	echo   *echo.Echo
}

type translateResponse struct {
	Translations []string `json:"translations"`
	TimeMS       float64  `json:"time_ms"`
	ModelUsed    bool     `json:"model_used"`
}

type sourceResponse struct {
	Translations []string `json:"translations"`
}

// NewServer builds a server for coord. Routes and middleware are registered
// immediately; nothing listens until Start.
func NewServer(coord *sitetrans.Coordinator, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.Port
	if port <= 0 {
		port = 8000
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		// A cold request loads the model before answering.
		writeTimeout = 5 * time.Minute
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		coord:  coord,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowOrigins:    origins,
		},
	}
	s.echo = s.routes()
	return s
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/", s.handleRoot)
	e.POST("/translate", s.handleTranslate)

	return e
}

// Start listens on Addr and blocks until ctx is cancelled and in-flight
// requests have drained, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.coord == nil {
		return fmt.Errorf("server is not initialized")
	}

	addr := s.Addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.echo,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	stopped := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("translation server started")

	err := s.echo.StartServer(httpServer)
	close(stopped)
	<-drained
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("translation server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "Translator API Running",
		"model_state": s.coord.Models().State().String(),
	})
}

func (s *Server) handleTranslate(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return fail(c, http.StatusBadRequest, "Cannot read request body", nil)
	}
	if len(body) > maxBodyBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "Request body too large", nil)
	}

	req, err := decodeTranslateRequest(body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request", map[string]string{
			"error": err.Error(),
		})
	}

	res, err := s.coord.Translate(c.Request().Context(), sitetrans.TranslateRequest{
		Texts:      req.Texts,
		TargetLang: req.TargetLang,
		SiteID:     req.SiteID,
	})
	if err != nil {
		return s.translateError(c, err)
	}

	if res.Metadata.SourceOnly {
		return c.JSON(http.StatusOK, sourceResponse{Translations: res.Translations})
	}

	return c.JSON(http.StatusOK, translateResponse{
		Translations: res.Translations,
		TimeMS:       roundMS(res.Metadata.Elapsed),
		ModelUsed:    res.Metadata.ModelUsed,
	})
}

func (s *Server) translateError(c echo.Context, err error) error {
	var langErr *sitetrans.UnsupportedLanguageError
	var reqErr *sitetrans.RequestError
	var modelErr *sitetrans.ModelError

	switch {
	case errors.As(err, &langErr):
		return fail(c, http.StatusBadRequest, langErr.Error(), map[string]any{
			"target_lang": langErr.Lang,
			"supported":   langErr.Supported,
		})
	case errors.As(err, &reqErr):
		return fail(c, http.StatusBadRequest, reqErr.Error(), map[string]string{
			reqErr.Field: reqErr.Message,
		})
	case errors.As(err, &modelErr):
		s.logger.Error().Err(err).Msg("translation model failed")
		return errorWithStatus(c, http.StatusServiceUnavailable, "Translation model unavailable")
	default:
		s.logger.Error().Err(err).Msg("translation failed")
		return internalError(c, "Translation failed")
	}
}

func roundMS(d time.Duration) float64 {
	ms := float64(d.Microseconds()) / 1000
	return math.Round(ms*100) / 100
}
