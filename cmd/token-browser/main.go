package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/chandraveer04/token-browser/internal/app"
)

func main() {
	// Ctrl+C / kubernetes 停止信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New("token-browser")
	if err != nil {
		log.Fatalf("init token-browser error: %v", err)
	}
	cleanUp, err := a.StartService(ctx)
	if err != nil {
		log.Fatalf("start token-browser error: %v", err)
	}
	defer cleanUp()

	if err := app.ServeHTTP(ctx, a.StartHttp(), 5*time.Second); err != nil {
		log.Printf("token-browser http error: %v", err)
	}
	log.Println("token-browser exit")
}
