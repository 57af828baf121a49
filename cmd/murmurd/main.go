package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"murmur/internal/audio"
	"murmur/internal/bus"
	"murmur/internal/clipboard"
	"murmur/internal/config"
	"murmur/internal/correction"
	"murmur/internal/dispatch"
	"murmur/internal/integration"
	"murmur/internal/intent"
	"murmur/internal/ipc"
	"murmur/internal/memory"
	"murmur/internal/notify"
	"murmur/internal/osact"
	"murmur/internal/pipeline"
	"murmur/internal/proxy"
	"murmur/internal/ratelimit"
	"murmur/internal/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "", "Config file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address (empty for direct)")
	offline := cli.Bool("offline", false, "Transcribe locally with whisper.cpp")
	device := cli.StringP("device", "d", "", "Preferred input device name")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Audio.PreferredDevice = *device
	}
	if *proxyAddr != "" {
		cfg.Proxy.SocksAddr = *proxyAddr
	}

	godotenv.Load(*envFile)
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Error("OPENAI_API_KEY not set")
		os.Exit(1)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.Proxy.SocksAddr != "" {
		httpClient, err := proxy.NewSocksClient(cfg.Proxy.SocksAddr)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy.SocksAddr, "err", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
		log.Debug("Loaded proxy")
	}
	client := openai.NewClient(opts...)

	store, err := memory.NewSQLiteStore(cfg.Memory.DBPath)
	if err != nil {
		log.Error("Failed to open store", "path", cfg.Memory.DBPath, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	streamer := audio.NewStreamer()
	if err := streamer.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer streamer.Close()
	log.Debug("Loaded capture")

	var transcriber stt.Transcriber
	if *offline {
		whisper, err := stt.NewWhisper(cfg.Whisper.ModelPath, cfg.Whisper.Language)
		if err != nil {
			log.Error("Failed to init whisper", "err", err)
			os.Exit(1)
		}
		defer whisper.Close()
		transcriber = whisper
		log.Debug("Loaded whisper")
	} else {
		transcriber = stt.NewOpenAI(client, cfg.OpenAI.TranscribeModel)
	}

	completion := intent.NewOpenAIClient(client, cfg.OpenAI.ChatModel)
	resolver := intent.NewResolver(completion)

	surface := osact.NewLinux()
	runner := integration.ExecRunner{}
	mgr := integration.NewManager()
	for _, i := range []integration.AppIntegration{
		integration.NewSpotify(runner),
		integration.NewDiscord(runner),
		integration.NewSystem(runner),
	} {
		if err := mgr.Register(i); err != nil {
			log.Error("Failed to register integration", "name", i.Name(), "err", err)
			os.Exit(1)
		}
	}
	for _, name := range cfg.Integrations.Disabled {
		if err := mgr.SetEnabled(name, false); err != nil {
			log.Warn("Cannot disable unknown integration", "name", name)
		}
	}

	hist := clipboard.NewHistory(clipboard.DefaultSize, clipboard.DefaultExpiry)
	dispatcher := dispatch.New(surface, mgr, intent.NewClipboardProcessor(completion), store, hist)

	hub := bus.NewHub()
	go func() {
		if err := hub.ListenAndServe(cfg.Bus.Addr); err != nil {
			log.Error("Event bus stopped", "err", err)
		}
	}()

	pipe, err := pipeline.New(
		streamer, transcriber, resolver, dispatcher,
		mgr, surface, store,
		ratelimit.New(cfg.RateLimit),
		correction.NewTracker(),
		hub,
		pipeline.Options{
			PreferredDevice: cfg.Audio.PreferredDevice,
			MinSamples:      cfg.Audio.MinSamples,
			SettleDelay:     time.Duration(cfg.Audio.SettleDelayMs) * time.Millisecond,
			ShortTermCap:    cfg.Memory.ShortTermCap,
			FactCap:         cfg.Memory.FactCap,
		},
	)
	if err != nil {
		log.Error("Failed to start pipeline", "err", err)
		os.Exit(1)
	}

	closeIPC, err := ipc.StartServer(func(msg ipc.ControlMessage) string {
		return handleCommand(pipe, cfg, msg)
	})
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer closeIPC()

	log.Info("Boot up - successful", "session", pipe.SessionID())
	select {}
}

func handleCommand(pipe *pipeline.Pipeline, cfg config.Config, msg ipc.ControlMessage) string {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch msg.Cmd {
	case ipc.CmdStart:
		if err := pipe.StartListening(); err != nil {
			return "error: " + err.Error()
		}
		if cfg.Audio.Cues {
			go notify.ListenStart()
		}
		return "listening"

	case ipc.CmdStop:
		res, err := pipe.StopListening(ctx)
		return finish(res, err, cfg)

	case ipc.CmdToggle:
		res, started, err := pipe.Toggle(ctx)
		if started {
			if err == nil && cfg.Audio.Cues {
				go notify.ListenStart()
			}
			if err != nil {
				return describeErr(err)
			}
			return "listening"
		}
		return finish(res, err, cfg)

	case ipc.CmdNewSession:
		if err := pipe.NewSession(); err != nil {
			return "error: " + err.Error()
		}
		return "session: " + pipe.SessionID()

	case ipc.CmdClear:
		pipe.ClearConversation()
		return "cleared"

	case ipc.CmdStatus:
		if pipe.Listening() {
			return fmt.Sprintf("listening (level %.2f)", pipe.Level())
		}
		return "idle (session " + pipe.SessionID() + ")"

	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return "unknown command: " + msg.Cmd
	}
}

func finish(res pipeline.SessionResult, err error, cfg config.Config) string {
	if cfg.Audio.Cues {
		go notify.ListenStop()
	}
	if err != nil {
		return describeErr(err)
	}
	log.Info("Cycle complete",
		"transcript", res.Transcript,
		"action", res.Action.Kind,
		"success", res.Result.Success,
		"took", res.Duration,
	)
	return res.Result.Message
}

func describeErr(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrTooShort):
		return "too short, ignored"
	case errors.Is(err, pipeline.ErrNoSpeech):
		return "no speech detected"
	case errors.Is(err, pipeline.ErrNotListening):
		return "not listening"
	case errors.Is(err, pipeline.ErrAlreadyListening):
		return "already listening"
	default:
		return "error: " + err.Error()
	}
}
