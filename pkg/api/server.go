// Package api provides the REST API server for sonivoxrender
package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/sonivoxrender/pkg/config"
	"github.com/james-see/sonivoxrender/pkg/eas"
	"github.com/james-see/sonivoxrender/pkg/pcm"
	"github.com/james-see/sonivoxrender/pkg/renderer"
)

// @title Sonivoxrender API
// @version 1.0
// @description API for rendering MIDI files to PCM audio
// @host localhost:8080
// @BasePath /api/v1

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-ID"

// Server owns the process engine and serializes renders against it.
type Server struct {
	mu     sync.Mutex
	engine *renderer.Engine
	cfg    config.Config
	log    *slog.Logger
}

// New initializes the engine, loads the configured instrument collection and
// applies the configured settings once to check them.
func New(lib eas.Library, cfg config.Config, opts renderer.Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	settings := cfg.Settings()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	e, err := renderer.Initialize(lib, settings.Verbosity, opts)
	if err != nil {
		return nil, err
	}
	if settings.DLSPath != "" {
		if err := e.LoadCollection(settings.DLSPath); err != nil {
			return nil, err
		}
	}
	if err := e.Apply(settings); err != nil {
		return nil, err
	}
	return &Server{engine: e, cfg: cfg, log: opts.Logger}, nil
}

// Close shuts the engine down.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Shutdown()
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(s.requestLogger())

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.healthCheck)
		v1.GET("/version", s.version)
		v1.GET("/presets", listPresets)
		v1.POST("/render", s.handleRender)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the specified port
func StartServer(lib eas.Library, cfg config.Config, opts renderer.Options) error {
	s, err := New(lib, cfg, opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Router().Run(fmt.Sprintf(":%d", cfg.Port))
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
		c.Header("Access-Control-Expose-Headers", "X-Sample-Rate, X-Channels, X-Sample-Width, "+RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API and its engine
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	s.mu.Lock()
	active := s.engine.Active()
	s.mu.Unlock()

	if !active {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "engine unavailable",
			"service": "sonivoxrender",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "sonivoxrender",
	})
}

// version godoc
// @Summary Engine configuration
// @Description Returns the synthesizer library version and mix configuration
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Router /api/v1/version [get]
func (s *Server) version(c *gin.Context) {
	s.mu.Lock()
	cfg, err := s.engine.Config()
	s.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"engine":       s.cfg.Engine,
		"version":      cfg.Version(),
		"sample_rate":  cfg.SampleRate,
		"channels":     cfg.NumChannels,
		"sample_width": eas.SampleWidth,
		"mix_buffer":   cfg.MixBufferSize,
		"max_voices":   cfg.MaxVoices,
	})
}

// Preset is one selectable effect preset.
type Preset struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Presets lists the values accepted for a reverb or chorus setting.
func Presets(names []string) []Preset {
	out := []Preset{{ID: 0, Name: "off"}}
	for i, n := range names {
		out = append(out, Preset{ID: i + 1, Name: n})
	}
	return out
}

// listPresets godoc
// @Summary List effect presets
// @Description Returns the reverb and chorus presets accepted by render
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]Preset
// @Router /api/v1/presets [get]
func listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"reverb": Presets(eas.ReverbPresetNames),
		"chorus": Presets(eas.ChorusPresetNames),
	})
}

var overrideParams = []struct {
	name string
	dst  func(*renderer.EffectSettings) *int
}{
	{"gain", func(s *renderer.EffectSettings) *int { return &s.PlaybackGain }},
	{"reverb", func(s *renderer.EffectSettings) *int { return &s.ReverbPreset }},
	{"wet", func(s *renderer.EffectSettings) *int { return &s.ReverbWet }},
	{"dry", func(s *renderer.EffectSettings) *int { return &s.ReverbDry }},
	{"chorus", func(s *renderer.EffectSettings) *int { return &s.ChorusPreset }},
	{"level", func(s *renderer.EffectSettings) *int { return &s.ChorusLevel }},
}

func (s *Server) requestSettings(c *gin.Context) (renderer.EffectSettings, error) {
	settings := s.cfg.Settings()
	for _, p := range overrideParams {
		v, ok := c.GetQuery(p.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return settings, fmt.Errorf("invalid %s: %q", p.name, v)
		}
		*p.dst(&settings) = n
	}
	return settings, settings.Validate()
}

// handleRender godoc
// @Summary Render MIDI to audio
// @Description Upload a MIDI file and receive 16-bit PCM audio, raw or as WAV
// @Tags render
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "MIDI file to render"
// @Param format query string false "raw (default) or wav"
// @Param gain query int false "Playback gain 0..100"
// @Param reverb query int false "Reverb preset 0..4"
// @Param wet query int false "Reverb wet 0..32767"
// @Param dry query int false "Reverb dry 0..32767"
// @Param chorus query int false "Chorus preset 0..4"
// @Param level query int false "Chorus level 0..32767"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/render [post]
func (s *Server) handleRender(c *gin.Context) {
	format := c.DefaultQuery("format", "raw")
	if format != "raw" && format != "wav" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported format"})
		return
	}
	settings, err := s.requestSettings(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Get uploaded file
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	dir, err := os.MkdirTemp("", "sonivoxrender-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.RemoveAll(dir)

	midiPath := filepath.Join(dir, "input.mid")
	if err := saveUpload(file, midiPath); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.engine.Active() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine unavailable"})
		return
	}
	if err := s.engine.Apply(settings); err != nil {
		s.log.Error("engine shut down after configuration failure", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	cfg, err := s.engine.Config()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	outputName := outputName(header.Filename, format)
	if format == "wav" {
		s.renderWAV(c, cfg, midiPath, filepath.Join(dir, outputName), outputName)
		return
	}
	s.renderRaw(c, cfg, midiPath, outputName)
}

func (s *Server) renderRaw(c *gin.Context, cfg *eas.Config, midiPath, name string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.Header("X-Sample-Rate", strconv.Itoa(cfg.SampleRate))
	c.Header("X-Channels", strconv.Itoa(cfg.NumChannels))
	c.Header("X-Sample-Width", strconv.Itoa(eas.SampleWidth))
	c.Header("Content-Type", "application/octet-stream")

	res, err := s.engine.RenderFile(midiPath, c.Writer)
	if err == nil {
		if !c.Writer.Written() {
			c.Status(http.StatusOK)
			c.Writer.WriteHeaderNow()
		}
		return
	}
	if c.Writer.Written() {
		// headers are gone; the client sees a truncated body
		s.log.Error("render failed mid-stream", "error", err, "bytes", res.Bytes)
		return
	}
	c.Header("Content-Disposition", "")
	c.JSON(renderStatus(err), gin.H{"error": err.Error()})
}

func (s *Server) renderWAV(c *gin.Context, cfg *eas.Config, midiPath, wavPath, name string) {
	w, err := pcm.CreateWAV(wavPath, pcm.Format{SampleRate: cfg.SampleRate, Channels: cfg.NumChannels})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	_, err = s.engine.RenderFile(midiPath, w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.JSON(renderStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.FileAttachment(wavPath, name)
}

func renderStatus(err error) int {
	switch renderer.CodeOf(err) {
	case renderer.ErrStreamOpenFailed, renderer.ErrInvalidStreamHandle, renderer.ErrPrepareFailed,
		renderer.ErrMetadataParseFailed, renderer.ErrEmptyPlayLength:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, renderer.ErrShutDown) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func saveUpload(src io.Reader, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Generate output filename
func outputName(upload, format string) string {
	ext := ".pcm"
	if format == "wav" {
		ext = ".wav"
	}
	base := strings.TrimSuffix(filepath.Base(upload), filepath.Ext(upload))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "rendered"
	}
	return base + ext
}
