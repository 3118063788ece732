package main

import (
	"log"
	"os"

	"github.com/jobdesk/jobdesk-backend/internal/config"
	"github.com/jobdesk/jobdesk-backend/internal/db"
	"github.com/jobdesk/jobdesk-backend/internal/model"
	"github.com/jobdesk/jobdesk-backend/internal/server"
	"github.com/joho/godotenv"
)

// Set via -ldflags at build time.
var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	srv := server.New(nil, gitSHA, buildTime)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	errCh := make(chan error, 1)

	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	// Connect the database off the serving path so the process comes up and
	// degrades to API-unavailable rather than refusing to boot.
	go func() {
		cfg, err := config.Load()
		if err != nil {
			log.Printf("config load error: %v", err)
			return
		}
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Printf("db connect error: %v", err)
			return
		}
		srv.SetDB(conn)
		if err := conn.AutoMigrate(&model.Conversation{}, &model.Message{}, &model.Notification{}); err != nil {
			log.Printf("auto migrate error: %v", err)
		}
	}()

	if err := <-errCh; err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
