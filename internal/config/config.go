package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	JWTSecret           string
	PassingScore        float64
	EscalationScore     float64
	RealtimeChannel     string
	RealtimeSubject     string
	RealtimeMaxAttempts int
	DashboardExamID     uint
	DashboardExaminerID uint
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADESYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GradeSync API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("grading.passing_score", 5.0)
	v.SetDefault("grading.escalation_score", 3.0)
	v.SetDefault("realtime.channel", "gradesync.submissions")
	v.SetDefault("realtime.subject", "gradesync.submissions")
	v.SetDefault("realtime.max_attempts", 10)

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		PassingScore:        v.GetFloat64("grading.passing_score"),
		EscalationScore:     v.GetFloat64("grading.escalation_score"),
		RealtimeChannel:     v.GetString("realtime.channel"),
		RealtimeSubject:     v.GetString("realtime.subject"),
		RealtimeMaxAttempts: v.GetInt("realtime.max_attempts"),
		DashboardExamID:     v.GetUint("dashboard.exam_id"),
		DashboardExaminerID: v.GetUint("dashboard.examiner_id"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.PassingScore <= 0 {
		cfg.PassingScore = 5.0
	}

	if cfg.EscalationScore < 0 {
		cfg.EscalationScore = 3.0
	}

	if cfg.RealtimeMaxAttempts <= 0 {
		cfg.RealtimeMaxAttempts = 10
	}

	return cfg, nil
}
