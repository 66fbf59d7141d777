package main

import (
	"github.com/rs/zerolog/log"

	"github.com/ndthang/quizdeck/config"
	"github.com/ndthang/quizdeck/internal/devserver"
	"github.com/ndthang/quizdeck/internal/logger"
)

func main() {
	logger.Init()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	engine := devserver.NewEngine(devserver.NewServer())
	log.Info().Msgf("Quiz dev API listening on port %s", cfg.Server.Port)
	if err := engine.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
