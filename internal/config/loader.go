package config

import (
	"log"

	"github.com/flowgrid/flowgrid/internal/db"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Database       db.Config
	ListenAddr     string
	AllowedOrigins []string
	MigrationsPath string
	ExportDir      string
}

// Load reads config.yaml from configPath, with environment overrides
// prefixed FLOWGRID (e.g. FLOWGRID_DATABASE_HOST). Missing file means
// defaults plus env.
func Load(configPath string) (Config, error) {
	cfg := Config{
		Database:       db.DefaultConfig(),
		ListenAddr:     ":8080",
		AllowedOrigins: []string{"http://localhost:3000"},
		MigrationsPath: "./migrations",
	}

	if configPath == "" {
		configPath = "."
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("FLOWGRID")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("export.dir")

	if err := v.ReadInConfig(); err != nil {
		log.Println("[CONFIG] no config.yaml found, using defaults and env vars")
	} else {
		log.Println("[CONFIG] loaded config.yaml")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.ListenAddr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("migrations.path") {
		cfg.MigrationsPath = v.GetString("migrations.path")
	}
	if v.IsSet("export.dir") {
		cfg.ExportDir = v.GetString("export.dir")
	}

	return cfg, nil
}
