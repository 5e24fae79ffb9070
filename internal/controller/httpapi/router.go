// Package httpapi HTTP API бронирования шаттлов
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	JWTSecret      string
	CronSecret     string
	AllowedOrigins []string
	Production     bool
}

// NewRouter собирает gin engine со всеми маршрутами
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestID(), Logger(logger), Recovery(logger))

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization", "Idempotency-Key", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Warn("Failed to set trusted proxies", zap.Error(err))
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, codeNotFound, "route not found")
	})

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/reservations", h.Reserve)
		api.GET("/reservations/by-key/:key", h.LookupByKey)
		api.GET("/schedules", h.ListSchedules)

		bookings := api.Group("/bookings")
		bookings.GET("/:code", h.GetBooking)
		bookings.POST("/:code/cancel", h.CancelBooking)
		bookings.POST("/:code/resend", h.ResendBooking)

		admin := api.Group("/admin", RequireRoles(cfg.JWTSecret, RoleOps, RoleAdmin))
		admin.POST("/instances/:id/capacity", h.AdjustCapacity)
		admin.POST("/instances/:id/cancel", h.CancelInstance)
		admin.POST("/bookings/:id/cancel", h.CancelBookingByID)
		admin.POST("/bookings/:id/resend", h.ResendBookingByID)
		admin.GET("/notifications/failed", h.ListFailedNotifications)
		admin.GET("/templates", h.ListTemplates)
		admin.POST("/templates", h.CreateTemplate)
		admin.PUT("/templates/:id", h.UpdateTemplate)
		admin.POST("/templates/:id/deactivate", h.DeactivateTemplate)
		admin.POST("/schedules/generate", h.GenerateSchedules)

		cron := api.Group("/cron", RequireCronSecret(cfg.CronSecret))
		cron.POST("/notifications", h.ProcessNotifications)
	}

	return r
}

// Server HTTP сервер с корректной остановкой по ctx
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run обслуживает запросы до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
