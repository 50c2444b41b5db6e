// Command parallax runs the aggregation server: one HTTP endpoint that fans
// a prompt out to every configured LLM provider and streams the merged
// results back as NDJSON.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/parallaxchat/parallax/internal/httpapi"
	"github.com/parallaxchat/parallax/pkg/slogx"
	"github.com/parallaxchat/parallax/provider"
	"github.com/parallaxchat/parallax/provider/anthropic"
	"github.com/parallaxchat/parallax/provider/gemini"
	"github.com/parallaxchat/parallax/provider/openai"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

func main() {
	v := viper.New()
	v.SetEnvPrefix("PARALLAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("addr", ":8080")
	v.SetDefault("log.level", "info")

	if lvl, err := zerolog.ParseLevel(v.GetString("log.level")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	registry := provider.NewRegistry(
		gemini.New(),
		openai.New(),
		anthropic.New(),
	)

	serverOpts := []httpapi.Option{httpapi.WithAddr(v.GetString("addr"))}
	for _, key := range provider.Keys() {
		if model := v.GetString("model." + string(key)); model != "" {
			serverOpts = append(serverOpts, httpapi.WithDefaultModel(key, model))
		}
	}

	srv, err := httpapi.New(registry, serverOpts...)
	if err != nil {
		slog.Error("failed to configure server", slogx.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting aggregation server", "addr", v.GetString("addr"))
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server exited", slogx.Error(err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}
