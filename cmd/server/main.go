package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zutopia/internal/api"
	"zutopia/internal/audio"
	"zutopia/internal/config"
	"zutopia/internal/game"
	"zutopia/internal/render"
)

func main() {
	if path, ok := config.LoadDotEnv("../.env", ".env"); ok {
		log.Printf("✅ Loaded environment from %s", path)
	} else {
		log.Println("💡 No .env file found, using environment variables only")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  ZUTOPIA - GO ENGINE")
	log.Println("🎮  HTTP + WebSocket server")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	serverCfg := appConfig.Server
	gameCfg := appConfig.Game

	engine, err := game.NewEngine(gameCfg, appConfig.Engine)
	if err != nil {
		log.Fatalf("❌ Invalid game configuration: %v", err)
	}
	log.Printf("🎮 Config: %.0fx%.0f arena, %dx%d targets, %d misses allowed, %d TPS",
		gameCfg.ArenaWidth, gameCfg.ArenaHeight, gameCfg.Grid.Rows, gameCfg.Grid.Columns,
		gameCfg.MissLimit, appConfig.Engine.TickRate)
	if appConfig.Engine.Autopilot {
		log.Println("🤖 Autopilot enabled")
	}

	if path := appConfig.Engine.EventLogPath; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", path)
		}
	}

	// Start debug server
	debugCfg := api.DefaultObservabilityConfig()
	debugCfg.Enabled = serverCfg.DebugEnabled
	debugCfg.ListenAddr = serverCfg.DebugAddr
	debugCfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	debugCfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	if err := api.StartDebugServer(debugCfg); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	opts := api.ServerOptions{
		AllowedOrigins: serverCfg.AllowedOrigins,
		BroadcastHz:    serverCfg.BroadcastHz,
	}
	if renderer, err := render.New(appConfig.Render); err != nil {
		log.Printf("⚠️ Frame rendering disabled: %v", err)
	} else {
		opts.Renderer = renderer
	}
	if bank, err := audio.NewBank(appConfig.Audio); err != nil {
		log.Printf("⚠️ Sound effects disabled: %v", err)
	} else {
		opts.Sounds = bank
	}

	server := api.NewServer(engine, opts)

	// Start API server in goroutine
	go func() {
		addr := fmt.Sprintf(":%d", serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("🖼️ Live frame: http://localhost%s/api/frame.png", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	engine.Start()
	log.Println("✅ Game Engine started")

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}
