// Command zutopia-term plays the game in a terminal.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"zutopia/internal/config"
	"zutopia/internal/game"
	"zutopia/internal/term"

	"github.com/gdamore/tcell/v2"
)

func main() {
	config.LoadDotEnv("../.env", ".env")

	// The screen owns stdout, so logs go to a file
	logPath := os.Getenv("LOG_FILE")
	if logPath == "" {
		logPath = "zutopia-term.log"
	}
	if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	appConfig := config.Load()
	engine, err := game.NewEngine(appConfig.Game, appConfig.Engine)
	if err != nil {
		log.Fatalf("❌ Invalid game configuration: %v", err)
	}
	if path := appConfig.Engine.EventLogPath; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		}
		defer engine.StopEventLog()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("❌ Failed to create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("❌ Failed to initialize screen: %v", err)
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := term.New(engine, screen, appConfig.Engine.TickRate).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("❌ %v", err)
	}
	log.Println("👋 Goodbye!")
}
