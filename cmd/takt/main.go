// Command takt is the voice-controlled live-set conductor for Sonic Pi.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fbruckner/takt/internal/config"
	"github.com/fbruckner/takt/internal/health"
	"github.com/fbruckner/takt/internal/intent"
	"github.com/fbruckner/takt/internal/knn"
	"github.com/fbruckner/takt/internal/macro"
	"github.com/fbruckner/takt/internal/memory"
	"github.com/fbruckner/takt/internal/observe"
	"github.com/fbruckner/takt/internal/osc"
	"github.com/fbruckner/takt/internal/resilience"
	"github.com/fbruckner/takt/internal/sched"
	"github.com/fbruckner/takt/internal/session"
	"github.com/fbruckner/takt/pkg/audio"
	paaudio "github.com/fbruckner/takt/pkg/audio/portaudio"
	embedollama "github.com/fbruckner/takt/pkg/provider/embeddings/ollama"
	llmollama "github.com/fbruckner/takt/pkg/provider/llm/ollama"
	"github.com/fbruckner/takt/pkg/provider/stt"
	"github.com/fbruckner/takt/pkg/provider/stt/whisper"
)

// version is set at build time via -ldflags.
var version = "dev"

// clockInterval drives the scheduler and macro engine, matching the bar
// clock resolution the dispatch path assumes.
const clockInterval = 150 * time.Millisecond

// errQuit signals an orderly shutdown requested from the input loop. It must
// be non-nil so the errgroup cancels the sibling goroutines.
var errQuit = errors.New("quit requested")

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	listDevices := flag.Bool("list-devices", false, "list audio input devices and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "takt: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("takt starting",
		"version", version,
		"config", *configPath,
		"osc", fmt.Sprintf("%s:%d", cfg.OSC.Host, cfg.OSC.Port),
		"log_level", cfg.LogLevel,
	)

	// ── Device listing ────────────────────────────────────────────────────────
	if *listDevices {
		return printDevices()
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	metricsShutdown, err := observe.InitProvider(ctx, version)
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsShutdown(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Storage ───────────────────────────────────────────────────────────────
	store, err := memory.Open(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open database", "err", err)
		return 1
	}
	defer store.Close()

	// ── Providers ─────────────────────────────────────────────────────────────
	rawEmbedder, err := embedollama.New(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel)
	if err != nil {
		slog.Error("failed to create embeddings provider", "err", err)
		return 1
	}
	rawClassifier, err := llmollama.New(cfg.Ollama.BaseURL, cfg.Ollama.LLMModel)
	if err != nil {
		slog.Error("failed to create llm provider", "err", err)
		return 1
	}
	slog.Info("ollama providers ready", "llm", rawClassifier.ModelID(), "embeddings", rawEmbedder.ModelID())

	// One breaker for both surfaces: they share the Ollama server.
	breaker := resilience.NewBreaker("ollama")
	classifier := resilience.GuardGenerator(rawClassifier, breaker)
	embedder := resilience.GuardEmbedder(rawEmbedder, breaker)

	examples, err := knn.New(store.DB(), embedder)
	if err != nil {
		slog.Error("failed to initialise example store", "err", err)
		return 1
	}
	parser := intent.NewParser(examples, classifier, intent.Thresholds{
		KNNAuto:     cfg.Thresholds.KNNAuto,
		KNNSuggest:  cfg.Thresholds.KNNSuggest,
		LLMAutoConf: cfg.Thresholds.LLMAutoConfidence,
	})

	// ── Speech input (optional; text-only mode without a whisper model) ───────
	var (
		recorder    audio.Recorder
		transcriber stt.Transcriber
	)
	if cfg.Whisper.ModelPath != "" {
		recorder, err = paaudio.New(cfg.Audio.Device, paaudio.WithSampleRate(cfg.Audio.SampleRate))
		if err != nil {
			slog.Error("failed to open audio input", "err", err)
			return 1
		}
		defer recorder.Close()

		wt, err := whisper.New(cfg.Whisper.ModelPath, whisper.WithLanguage(cfg.Whisper.Language))
		if err != nil {
			slog.Error("failed to load whisper model", "err", err)
			return 1
		}
		defer wt.Close()
		transcriber = wt
		slog.Info("speech input ready", "model", cfg.Whisper.ModelPath, "language", cfg.Whisper.Language)
	} else {
		slog.Warn("whisper.model_path not set; running in text-only mode")
	}

	// ── Conductor core ────────────────────────────────────────────────────────
	state := session.NewState()
	if cfg.Profile != "" {
		state.SetProfileName(cfg.Profile)
	}
	client := osc.NewClient(cfg.OSC.Host, cfg.OSC.Port)
	scheduler := sched.New(float64(state.BPM()))
	macros := macro.NewEngine(state, func(key string, value any) {
		if err := client.Send(key, value); err != nil {
			slog.Warn("osc send failed", "key", key, "err", err)
		}
	}, scheduler.CurrentBar)
	controller := session.NewController(state, parser, client, macros, scheduler, store)

	// ── Run ───────────────────────────────────────────────────────────────────
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.RunClock(ctx, clockInterval, state, func(bpm int) {
			scheduler.SetBPM(float64(bpm))
			scheduler.Tick()
			macros.Tick()
		})
	})
	g.Go(func() error {
		return inputLoop(ctx, os.Stdin, controller, recorder, transcriber, cfg.Audio.RecordSeconds, observe.DefaultMetrics())
	})
	if cfg.MetricsAddr != "" {
		handler := health.New(
			health.OllamaChecker(&http.Client{}, cfg.Ollama.BaseURL),
			health.DatabaseChecker(store.DB()),
		)
		g.Go(func() error {
			slog.Info("operational endpoints listening", "addr", cfg.MetricsAddr)
			return health.Serve(ctx, cfg.MetricsAddr, handler)
		})
	}

	slog.Info("conductor ready — press Ctrl+C to shut down")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errQuit) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig reads the config file, falling back to the built-in defaults
// when the default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) && path == "config.yaml" {
		slog.Warn("config.yaml not found; using defaults")
		return config.Default(), nil
	}
	return cfg, err
}

// inputLoop reads operator input from in. An empty line records one
// push-to-talk utterance and transcribes it; any other line is processed as
// a typed phrase. "quit", "exit", and end of input return [errQuit] so the
// errgroup tears down the sibling goroutines.
func inputLoop(ctx context.Context, in io.Reader, c *session.Controller, rec audio.Recorder, tr stt.Transcriber, recordSeconds float64, met *observe.Metrics) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Println("Enter = aufnehmen, Text = direkt, quit = beenden")
	fmt.Printf("> %s\n", c.Describe())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			phrase := strings.TrimSpace(line)
			switch {
			case phrase == "quit" || phrase == "exit":
				return errQuit
			case phrase == "":
				if rec == nil || tr == nil {
					fmt.Println("Kein Mikrofon konfiguriert; Befehl eintippen.")
					continue
				}
				var err error
				phrase, err = recordPhrase(ctx, rec, tr, recordSeconds, met)
				if err != nil {
					slog.Error("recording failed", "err", err)
					continue
				}
			}
			res := c.HandleUtterance(ctx, phrase)
			printResult(res)
			fmt.Printf("> %s\n", c.Describe())
		}
	}
}

// recordPhrase captures one push-to-talk window and transcribes it.
func recordPhrase(ctx context.Context, rec audio.Recorder, tr stt.Transcriber, seconds float64, met *observe.Metrics) (string, error) {
	fmt.Printf("● aufnahme (%.0fs)…\n", seconds)
	samples, err := rec.Record(ctx, seconds)
	if err != nil {
		return "", err
	}
	start := time.Now()
	phrase, err := tr.Transcribe(ctx, samples)
	met.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	slog.Debug("utterance transcribed", "phrase", phrase, "took", time.Since(start))
	return phrase, nil
}

func printResult(res session.Result) {
	if res.Intent != "" && res.Intent != intent.NameUnknown {
		fmt.Printf("  %s %s (%.2f, %s)\n", res.Intent, res.Slots, res.Confidence, res.Tier)
	}
	if res.Message != "" {
		fmt.Printf("  %s\n", res.Message)
	}
}

// printDevices lists audio input devices for the -list-devices flag.
func printDevices() int {
	rec, err := paaudio.New("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "takt: %v\n", err)
		return 1
	}
	defer rec.Close()
	devices, err := rec.InputDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "takt: %v\n", err)
		return 1
	}
	for _, d := range devices {
		fmt.Println(d)
	}
	return 0
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
