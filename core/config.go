package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var build = "dev" // overridden at build time: -ldflags "-X github.com/fnelms/backend/core.build=..."

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string
		AppName  string
		WorkDir  string

		DefaultFromEmail mail.Address
		AdminEmail       mail.Address
		FrontendBaseURL  string

		SendgridAPIKey string
		RollbarToken   string

		Database  DatabaseConfig
		Reconcile ReconcileConfig
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Timeout       time.Duration
	}

	// ReconcileConfig tunes the enrollment reconciliation runs.
	ReconcileConfig struct {
		// ReportLimit caps the per-user entries listed in a drift report
		// email; 0 means unlimited.
		ReportLimit int
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "FNE LMS")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("adminEmail", "admin@localhost")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("databaseEngine", "postgres")
	conf.SetDefault("databaseName", "fnelms")
	conf.SetDefault("databaseHost", "localhost")
	conf.SetDefault("databasePort", "5432")
	conf.SetDefault("databaseUser", "")
	conf.SetDefault("databasePassword", "")
	conf.SetDefault("databaseAdminUser", "")
	conf.SetDefault("databaseAdminPassword", "")
	conf.SetDefault("databaseDisableTLS", true)
	conf.SetDefault("databaseTimeout", 5*time.Second)
	conf.SetDefault("reconcileReportLimit", 500)

	var testMode bool
	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:    conf.GetBool("debug"),
		TestMode: testMode,
		Env:      env,
		Build:    build,
		AppName:  conf.GetString("appName"),
		WorkDir:  wd,

		DefaultFromEmail: mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		AdminEmail:       mail.Address{Address: conf.GetString("adminEmail")},
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),

		SendgridAPIKey: conf.GetString("sendgridApiKey"),
		RollbarToken:   conf.GetString("rollbarToken"),

		Database: DatabaseConfig{
			Engine:        conf.GetString("databaseEngine"),
			Name:          conf.GetString("databaseName"),
			Host:          conf.GetString("databaseHost"),
			Port:          conf.GetString("databasePort"),
			User:          conf.GetString("databaseUser"),
			Password:      conf.GetString("databasePassword"),
			AdminUser:     conf.GetString("databaseAdminUser"),
			AdminPassword: conf.GetString("databaseAdminPassword"),
			DisableTLS:    conf.GetBool("databaseDisableTLS"),
			Timeout:       conf.GetDuration("databaseTimeout"),
		},
		Reconcile: ReconcileConfig{
			ReportLimit: conf.GetInt("reconcileReportLimit"),
		},
	}
}
