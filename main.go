package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"campaign-sender/campaign"
	"campaign-sender/config"
	"campaign-sender/mailer"
	"campaign-sender/outcome"
	"campaign-sender/policy"
	"campaign-sender/recipients"
	"campaign-sender/utils"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	policies *policy.Store
	outcomes *outcome.Log
	driver   *campaign.Driver
	logs     *logBuffer
	server   *http.Server
}

// logBuffer keeps the most recent driver event lines for the operator,
// the same role the log box played in the desktop UI.
type logBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newLogBuffer(max int) *logBuffer {
	return &logBuffer{max: max}
}

func (b *logBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

func (b *logBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func NewServer(cfg *config.Config) (*Server, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	policies := policy.NewStore(cfg.Storage.PolicyFile)
	outcomes, err := outcome.NewLog(cfg.Storage.SentFile, cfg.Storage.FailedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize outcome log: %w", err)
	}

	sender := mailer.NewSender(cfg)
	driver := campaign.NewDriver(policies, sender, outcomes)

	s := &Server{
		router:   gin.Default(),
		config:   cfg,
		policies: policies,
		outcomes: outcomes,
		driver:   driver,
		logs:     newLogBuffer(500),
	}

	// Drain driver events into the operator log for the lifetime of
	// the process.
	go s.consumeEvents()

	return s, nil
}

func (s *Server) consumeEvents() {
	for ev := range s.driver.Events() {
		line := fmt.Sprintf("[%s] %s", ev.Time.Format("15:04:05"), ev.Message)
		s.logs.Append(line)
		log.Printf("%s", ev.Message)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	{
		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.updateSettings)

		api.POST("/campaign/start", s.startCampaign)
		api.POST("/campaign/stop", s.stopCampaign)
		api.GET("/campaign/status", s.campaignStatus)
		api.GET("/campaign/log", s.campaignLog)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     "campaign-sender",
		"version":     "1.0.0",
		"environment": s.config.App.Env,
		"running":     s.driver.IsRunning(),
	})
}

func (s *Server) getSettings(c *gin.Context) {
	p, err := s.policies.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) updateSettings(c *gin.Context) {
	var req policy.Policy
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.SenderEmail != "" && !utils.ValidateEmail(req.SenderEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid sender email: %s", req.SenderEmail)})
		return
	}
	if req.MinDelay < 0 || req.MaxDelay < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Delay values must be non-negative"})
		return
	}

	current, err := s.policies.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The daily counter and its date belong to the store, not the
	// operator; edits never touch them.
	req.CurrentDailyCount = current.CurrentDailyCount
	req.LastRunDate = current.LastRunDate

	if err := s.policies.Save(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.logs.Append(fmt.Sprintf("[%s] Configuration saved.", time.Now().Format("15:04:05")))
	c.JSON(http.StatusOK, &req)
}

func (s *Server) startCampaign(c *gin.Context) {
	var req struct {
		CSVPath string `json:"csv_path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.driver.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": campaign.ErrAlreadyRunning.Error()})
		return
	}

	pol, err := s.policies.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !pol.HasCredentials() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Sender email and app password must be configured first"})
		return
	}

	raw, err := recipients.Load(req.CSVPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	history, err := s.outcomes.SentEmails()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	toSend := recipients.Filter(raw, history)

	s.logs.Append(fmt.Sprintf("[%s] Found %d rows. After cleaning history: %d to send.",
		time.Now().Format("15:04:05"), len(raw), len(toSend)))

	runID, err := s.driver.Start(toSend)
	if err != nil {
		if errors.Is(err, campaign.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":  runID,
		"rows":    len(raw),
		"to_send": len(toSend),
	})
}

func (s *Server) stopCampaign(c *gin.Context) {
	if !s.driver.Stop() {
		c.JSON(http.StatusConflict, gin.H{"error": "no campaign is running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopping"})
}

func (s *Server) campaignStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.driver.Status())
}

func (s *Server) campaignLog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lines": s.logs.Lines()})
}

func (s *Server) Start() error {
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Server starting on %s", addr)
	log.Printf("Environment: %s", s.config.App.Env)
	log.Printf("SMTP relay: %s:%d", s.config.SMTP.Host, s.config.SMTP.Port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Ask the driver to stop first so the run reaches a clean terminal
	// state before the process exits.
	s.driver.Stop()
	return s.server.Shutdown(ctx)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on OS environment variables")
	}

	cfg := config.MustLoadConfig(config.GetEnv("CONFIG_PATH", "config.yaml"))

	log.Printf("Configuration loaded successfully")

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
