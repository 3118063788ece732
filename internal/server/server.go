package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jobdesk/jobdesk-backend/internal/handler"
	appmw "github.com/jobdesk/jobdesk-backend/internal/middleware"
	"github.com/jobdesk/jobdesk-backend/internal/realtime"
	"github.com/jobdesk/jobdesk-backend/internal/repository"
	"github.com/jobdesk/jobdesk-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type Server struct {
	e         *echo.Echo
	hub       *realtime.Hub
	convRepo  repository.ConversationRepository
	notifRepo repository.NotificationRepository
	sha       string
	build     string
}

func New(db *gorm.DB, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			host := u.Hostname()
			if strings.HasSuffix(host, "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	// One hub per process, owned here and injected; tests build their own.
	hub := realtime.NewHub()

	notifRepo := repository.NewNotificationRepository(db)
	notifSvc := service.NewNotificationService(notifRepo)
	notifHandler := handler.NewNotificationHandler(notifSvc)

	convRepo := repository.NewConversationRepository(db)
	convSvc := service.NewConversationService(convRepo, notifSvc)
	convHandler := handler.NewConversationHandler(convSvc)

	socketHandler := handler.NewSocketHandler(hub, convSvc)

	authMw, err := appmw.NewAuthMiddleware(context.Background())
	if err != nil {
		e.Logger.Warnf("firebase auth disabled: %v", err)
		authMw = nil
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	api := e.Group("/api")
	if authMw != nil {
		e.GET("/ws", socketHandler.Handle, authMw.RequireAuth)
		api.POST("/conversations", convHandler.Create, authMw.RequireAuth)
		api.GET("/conversations", convHandler.List, authMw.RequireAuth)
		api.GET("/conversations/:id", convHandler.Get, authMw.RequireAuth)
		api.GET("/conversations/:id/messages", convHandler.ListMessages, authMw.RequireAuth)
		api.POST("/conversations/:id/messages", convHandler.CreateMessage, authMw.RequireAuth)
		api.POST("/conversations/:id/read", notifHandler.MarkByConversation, authMw.RequireAuth)
		api.GET("/notifications", notifHandler.List, authMw.RequireAuth)
		api.POST("/notifications/read", notifHandler.MarkAllRead, authMw.RequireAuth)
	} else {
		e.GET("/ws", socketHandler.Handle)
		api.POST("/conversations", convHandler.Create)
		api.GET("/conversations", convHandler.List)
		api.GET("/conversations/:id", convHandler.Get)
		api.GET("/conversations/:id/messages", convHandler.ListMessages)
		api.POST("/conversations/:id/messages", convHandler.CreateMessage)
		api.POST("/conversations/:id/read", notifHandler.MarkByConversation)
		api.GET("/notifications", notifHandler.List)
		api.POST("/notifications/read", notifHandler.MarkAllRead)
	}

	return &Server{e: e, hub: hub, convRepo: convRepo, notifRepo: notifRepo, sha: sha, build: buildTime}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// Hub exposes the realtime broker, mainly for tests and shutdown hooks.
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

func (s *Server) SetDB(db *gorm.DB) {
	if s.convRepo != nil {
		s.convRepo.SetDB(db)
	}
	if s.notifRepo != nil {
		s.notifRepo.SetDB(db)
	}
}
