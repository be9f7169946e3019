package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// config is the resolved server configuration. Flags win over DOCS_WEB_*
// environment variables, which win over the config file.
type config struct {
	Addr           string
	PublicDir      string
	TemplatesDir   string
	LocalesDir     string
	SiteFile       string
	ContentBaseURL string
	Dev            bool
	LogLevel       string
	CacheTTL       time.Duration
	OTelEndpoint   string
}

// defaultAddr prefers DOCS_WEB_PORT, then the platform's PORT, else 8080.
func defaultAddr() string {
	port := os.Getenv("DOCS_WEB_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}
	return ":" + port
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	f := cmd.PersistentFlags()
	f.String("addr", defaultAddr(), "HTTP listen address")
	f.String("public", "public", "public files directory (markdown and static files)")
	f.String("templates", "templates", "templates directory")
	f.String("locales", "locales", "UI strings directory")
	f.String("site", "site.yaml", "site description file")
	f.String("content-base-url", "", "fetch markdown from this base URL before the public directory")
	f.Bool("dev", false, "reparse templates per request and enable live reload")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.Duration("cache-ttl", 5*time.Minute, "document cache duration, 0 disables")
	f.String("otel-endpoint", "", "OTLP/HTTP endpoint for traces, empty disables tracing")
	f.String("config", "", "config file (YAML, keys match flag names)")
	return v.BindPFlags(f)
}

func loadConfig(v *viper.Viper) (config, error) {
	v.SetEnvPrefix("DOCS_WEB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	cfg := config{
		Addr:           v.GetString("addr"),
		PublicDir:      v.GetString("public"),
		TemplatesDir:   v.GetString("templates"),
		LocalesDir:     v.GetString("locales"),
		SiteFile:       v.GetString("site"),
		ContentBaseURL: v.GetString("content-base-url"),
		Dev:            v.GetBool("dev"),
		LogLevel:       v.GetString("log-level"),
		CacheTTL:       v.GetDuration("cache-ttl"),
		OTelEndpoint:   v.GetString("otel-endpoint"),
	}
	// DEV is honoured as a shorthand for DOCS_WEB_DEV
	if !cfg.Dev && os.Getenv("DEV") != "" {
		cfg.Dev = true
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr()
	}
	return cfg, nil
}
