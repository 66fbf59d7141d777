package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server  Server
	API     API
	Draft   Draft
	Redis   Redis
	Attempt Attempt
	Auth    Auth
}

type Server struct {
	Port string
}

type API struct {
	BaseURL        string
	TimeoutSeconds int
	TokenFile      string
}

type Draft struct {
	// Backend selects the draft cache: "file" or "redis".
	Backend string
	Dir     string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Attempt struct {
	QuizID    uint
	AttemptID uint
}

type Auth struct {
	Username string
	Password string
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8000")
	viper.SetDefault("API_BASE_URL", "http://localhost:8000/api")
	viper.SetDefault("API_TIMEOUT_SECONDS", 30)
	viper.SetDefault("API_TOKEN_FILE", ".quizdeck-tokens.json")
	viper.SetDefault("DRAFT_BACKEND", "file")
	viper.SetDefault("DRAFT_DIR", ".quizdeck-drafts")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.API.BaseURL = viper.GetString("API_BASE_URL")
	config.API.TimeoutSeconds = viper.GetInt("API_TIMEOUT_SECONDS")
	config.API.TokenFile = viper.GetString("API_TOKEN_FILE")
	config.Draft.Backend = viper.GetString("DRAFT_BACKEND")
	config.Draft.Dir = viper.GetString("DRAFT_DIR")
	config.Redis.Addr = viper.GetString("REDIS_ADDR")
	config.Redis.Password = viper.GetString("REDIS_PASSWORD")
	config.Redis.DB = viper.GetInt("REDIS_DB")
	config.Attempt.QuizID = viper.GetUint("QUIZ_ID")
	config.Attempt.AttemptID = viper.GetUint("ATTEMPT_ID")
	config.Auth.Username = viper.GetString("QUIZ_USERNAME")
	config.Auth.Password = viper.GetString("QUIZ_PASSWORD")

	log.Info().Str("api", config.API.BaseURL).Str("draftBackend", config.Draft.Backend).Msg("Config loaded")
	return &config, nil
}
