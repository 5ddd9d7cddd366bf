// Package server exposes the configuration and conversation surface over
// HTTP: directory routes, vendor settings, greeting/chat/tts/stt passthrough,
// and a websocket feed of call events.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/harunnryd/payfone/pkg/adapters/stt"
	"github.com/harunnryd/payfone/pkg/adapters/tts"
	"github.com/harunnryd/payfone/pkg/directory"
	"github.com/harunnryd/payfone/pkg/greeting"
	"github.com/harunnryd/payfone/pkg/logging"
	"github.com/harunnryd/payfone/pkg/redact"
	"github.com/harunnryd/payfone/pkg/store"
)

// Chat sends one user message to a persona and returns the reply text.
type Chat interface {
	Send(ctx context.Context, number, text string) (string, error)
}

// Deps are the collaborators the HTTP surface exposes.
type Deps struct {
	Store     *store.SQLiteStore
	Directory *directory.Directory
	Greet     greeting.Service
	Chat      Chat
	TTS       tts.Synthesizer
	STT       stt.Transcriber
	Hub       *Hub
	Logger    *slog.Logger
}

type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *slog.Logger
}

func New(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	api.GET("/routes", s.listRoutes)
	api.PUT("/routes", s.putRoute)
	api.DELETE("/routes/:number", s.deleteRoute)
	api.GET("/settings/tts", s.getTTSSettings)
	api.PUT("/settings/tts", s.putTTSSettings)
	api.POST("/greeting", s.postGreeting)
	api.POST("/chat", s.postChat)
	api.POST("/tts", s.postTTS)
	api.POST("/stt", s.postSTT)
	s.echo.GET("/ws", s.serveWS)
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server starting", slog.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.deps.Hub != nil {
		s.deps.Hub.Close()
	}
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// --- directory routes ---

func (s *Server) listRoutes(c echo.Context) error {
	routes, err := s.deps.Store.ListRoutes(c.Request().Context())
	if err != nil {
		s.logger.Error("list routes failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list routes"})
	}
	if routes == nil {
		routes = []directory.Persona{}
	}
	return c.JSON(http.StatusOK, map[string]any{"routes": routes})
}

func (s *Server) putRoute(c echo.Context) error {
	ctx := c.Request().Context()

	var p directory.Persona
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if p.Number == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "number is required"})
	}
	if p.Provider == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "provider is required"})
	}

	if err := s.deps.Store.PutRoute(ctx, p); err != nil {
		s.logger.Error("put route failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save route"})
	}
	if err := s.reloadDirectory(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reload directory"})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) deleteRoute(c echo.Context) error {
	ctx := c.Request().Context()
	number := c.Param("number")

	if err := s.deps.Store.DeleteRoute(ctx, number); err != nil {
		s.logger.Error("delete route failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete route"})
	}
	if err := s.reloadDirectory(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reload directory"})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) reloadDirectory(ctx context.Context) error {
	routes, err := s.deps.Store.ListRoutes(ctx)
	if err != nil {
		s.logger.Error("directory reload failed", slog.String("error", err.Error()))
		return err
	}
	s.deps.Directory.Replace(routes)
	return nil
}

// --- vendor settings ---

// TTSSettings is the persisted voice-vendor configuration.
type TTSSettings struct {
	Provider string `json:"provider"`
	Voice    string `json:"voice,omitempty"`
	Model    string `json:"model,omitempty"`
}

func (s *Server) getTTSSettings(c echo.Context) error {
	var cfg TTSSettings
	ok, err := s.deps.Store.GetSetting(c.Request().Context(), "tts", &cfg)
	if err != nil {
		s.logger.Error("get tts settings failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load settings"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no tts settings"})
	}
	return c.JSON(http.StatusOK, cfg)
}

func (s *Server) putTTSSettings(c echo.Context) error {
	var cfg TTSSettings
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if cfg.Provider == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "provider is required"})
	}
	if err := s.deps.Store.PutSetting(c.Request().Context(), "tts", cfg); err != nil {
		s.logger.Error("put tts settings failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// --- conversation passthrough ---

type greetingRequest struct {
	Number string `json:"number"`
}

// postGreeting returns the persona's opening line. Provider failure is the
// degraded-to-silence contract: 200 with empty text, never an error body.
func (s *Server) postGreeting(c echo.Context) error {
	var req greetingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Number == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "number is required"})
	}
	if _, ok := s.deps.Directory.Resolve(req.Number); !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown number"})
	}

	text, err := s.deps.Greet.Greeting(c.Request().Context(), req.Number)
	if err != nil {
		s.logger.Warn("greeting failed", slog.String("number", req.Number), slog.String("error", err.Error()))
		text = ""
	}
	return c.JSON(http.StatusOK, map[string]string{"text": redact.Text(text)})
}

type chatRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// postChat relays one user turn. Same degraded contract as greeting.
func (s *Server) postChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Number == "" || req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "number and text are required"})
	}
	if _, ok := s.deps.Directory.Resolve(req.Number); !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown number"})
	}

	reply, err := s.deps.Chat.Send(c.Request().Context(), req.Number, req.Text)
	if err != nil {
		s.logger.Warn("chat failed", slog.String("number", req.Number), slog.String("error", err.Error()))
		reply = ""
	}
	return c.JSON(http.StatusOK, map[string]string{"text": redact.Text(reply)})
}

type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (s *Server) postTTS(c echo.Context) error {
	var req ttsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	clip, err := s.deps.TTS.Synthesize(c.Request().Context(), req.Text, req.Voice)
	if err != nil {
		s.logger.Error("tts failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "synthesis failed"})
	}
	c.Response().Header().Set("X-Sample-Rate", strconv.Itoa(s.deps.TTS.SampleRate()))
	return c.Blob(http.StatusOK, "audio/l16", clip)
}

func (s *Server) postSTT(c echo.Context) error {
	clip, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(clip) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "audio body is required"})
	}

	opts := stt.Options{
		Encoding: c.QueryParam("encoding"),
		Language: c.QueryParam("language"),
	}
	if v := c.QueryParam("sample_rate"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.SampleRate = n
		}
	}

	text, err := s.deps.STT.Transcribe(c.Request().Context(), clip, opts)
	if err != nil {
		s.logger.Error("stt failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "transcription failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"text": redact.Text(text)})
}

func (s *Server) serveWS(c echo.Context) error {
	if s.deps.Hub == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "event feed disabled"})
	}
	return s.deps.Hub.Serve(c.Response(), c.Request())
}
