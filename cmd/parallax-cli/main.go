// Command parallax-cli is a terminal client for the aggregation server. It
// manages the local settings file, runs a prompt through every configured
// provider side by side, and renders the comparative summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/parallaxchat/parallax/client"
	"github.com/parallaxchat/parallax/events"
	"github.com/parallaxchat/parallax/pkg/slogx"
	"github.com/parallaxchat/parallax/provider"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelWarn}),
	))
}

var labelColors = map[provider.Key]func(format string, a ...interface{}) string{
	provider.Gemini:    color.CyanString,
	provider.OpenAI:    color.GreenString,
	provider.Anthropic: color.MagentaString,
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "parallax-settings.json"
	}
	return filepath.Join(home, ".config", "parallax", "settings.json")
}

func main() {
	var (
		addr     = flag.String("addr", "http://localhost:8080", "aggregation server base URL")
		settings = flag.String("settings", defaultSettingsPath(), "settings file path")
		prompt   = flag.String("prompt", "", "prompt to send to every configured provider")
		setKey   = flag.String("set-key", "", "store an API key as provider=key and exit")
		setModel = flag.String("set-model", "", "store a model selection as provider=model and exit")
	)
	flag.Parse()

	store, err := client.LoadStore(*settings)
	if err != nil {
		slog.Error("failed to load settings", slogx.Error(err))
		os.Exit(1)
	}

	if *setKey != "" || *setModel != "" {
		if err := applySetting(store, *setKey, *setModel); err != nil {
			slog.Error("failed to update settings", slogx.Error(err))
			os.Exit(1)
		}
		fmt.Println("settings saved")
		return
	}

	if strings.TrimSpace(*prompt) == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *addr, store, *prompt); err != nil {
		slog.Error("run failed", slogx.Error(err))
		os.Exit(1)
	}
}

// applySetting parses provider=value pairs from the -set-key / -set-model
// flags and persists them.
func applySetting(store *client.Store, setKey, setModel string) error {
	apply := func(arg string, fn func(provider.Key, string) error) error {
		if arg == "" {
			return nil
		}
		name, value, ok := strings.Cut(arg, "=")
		key := provider.Key(strings.ToLower(strings.TrimSpace(name)))
		if !ok || !key.Valid() {
			return fmt.Errorf("expected provider=value with provider one of %v, got %q", provider.Keys(), arg)
		}
		return fn(key, strings.TrimSpace(value))
	}
	if err := apply(setKey, store.SetAPIKey); err != nil {
		return err
	}
	return apply(setModel, store.SetModel)
}

func run(ctx context.Context, addr string, store *client.Store, prompt string) error {
	transport := client.NewTransport(addr)
	sess, err := client.NewSession(transport, store.Settings(),
		client.WithObserver(renderEvent))
	if err != nil {
		return err
	}

	res, err := sess.Run(ctx, prompt)
	if err != nil {
		return err
	}
	fmt.Println()

	for _, key := range provider.Keys() {
		state, ok := res.Responses[key]
		if !ok || (state.Status == client.StatusFinished && state.Text == "") {
			continue
		}
		heading := labelColors[key]("%s", key.Label())
		switch state.Status {
		case client.StatusError:
			fmt.Printf("%s: %s\n", heading, color.RedString("%s", state.Err))
		case client.StatusFinished:
			fmt.Printf("%s:\n%s\n", heading, state.Text)
		default:
			fmt.Printf("%s: stream ended before completion\n", heading)
		}
	}

	if res.Evaluated {
		fmt.Printf("\n%s (by %s)\n", color.New(color.Bold).Sprint("Summary"), res.Summarizer.Label())
		fmt.Println(renderMarkdown(res.Summary))
	}
	return nil
}

// renderEvent prints live progress markers while the comparison streams.
func renderEvent(ev events.Event) {
	key := provider.Key(ev.ModelID())
	paint, ok := labelColors[key]
	if !ok {
		return
	}
	switch ev.(type) {
	case events.Start:
		fmt.Printf("%s started\n", paint("%s", key.Label()))
	case events.End:
		fmt.Printf("%s finished\n", paint("%s", key.Label()))
	case events.Error:
		fmt.Printf("%s failed\n", paint("%s", key.Label()))
	}
}

func renderMarkdown(text string) string {
	glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return text
	}
	out, err := glam.Render(text)
	if err != nil {
		return text
	}
	return out
}
