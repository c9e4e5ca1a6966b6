// Command zutopia plays the game in a desktop window.
package main

import (
	"log"

	"zutopia/internal/audio"
	"zutopia/internal/config"
	"zutopia/internal/desktop"
	"zutopia/internal/game"
)

func main() {
	if path, ok := config.LoadDotEnv("../.env", ".env"); ok {
		log.Printf("✅ Loaded environment from %s", path)
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

	var bank *audio.Bank
	if appConfig.Audio.Enabled {
		if bank, err = audio.NewBank(appConfig.Audio); err != nil {
			log.Printf("⚠️ Sound effects disabled: %v", err)
			bank = nil
		}
	}

	if err := desktop.Run(engine, bank, appConfig.Render, appConfig.Engine.TickRate); err != nil {
		log.Printf("❌ %v", err)
	}
	log.Println("👋 Goodbye!")
}
