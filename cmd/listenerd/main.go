// Command listenerd wires C1 through C8 together into a single running
// process: a microphone source feeds the recognizer, the recognizer
// hands finished phrases to the producer/consumer queue, the consumer
// invokes STT and emits bus events, and the messagebus-facing facade
// answers the request/response endpoints of spec.md §4.7 while the
// reload controller applies configuration.patch/profile_update changes
// to the whole thing in place.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/voxloop/listener/internal/config"
	"github.com/voxloop/listener/internal/logging"
	"github.com/voxloop/listener/pkg/bus"
	"github.com/voxloop/listener/pkg/hotword"
	"github.com/voxloop/listener/pkg/micsource"
	"github.com/voxloop/listener/pkg/pipeline"
	"github.com/voxloop/listener/pkg/recognizer"
	"github.com/voxloop/listener/pkg/reload"
	"github.com/voxloop/listener/pkg/service"
	"github.com/voxloop/listener/pkg/stt"
	"github.com/voxloop/listener/pkg/transform"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	logLevel := slog.LevelInfo
	if os.Getenv("LOG_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := logging.NewSlog(logLevel)

	cfg, cfgPath := loadConfig(logger)

	hwRegistry := hotword.NewRegistry(logging.WithComponent(logger, "hotword"))
	hwSet := buildHotwordSet(cfg, hwRegistry)

	sttRegistry := stt.NewRegistry()
	registerSTTProviders(sttRegistry, logger)
	sttAdapter, err := stt.NewAdapter(sttRegistry, cfg.STT.Module, cfg.STT.FallbackModule, cfg.Lang, cfg.STT.Modules, logging.WithComponent(logger, "stt"))
	if err != nil {
		log.Fatalf("listenerd: building stt adapter: %v", err)
	}
	sttHolder := stt.NewHolder(sttAdapter)

	chain := transform.NewChain(logging.WithComponent(logger, "transform"))
	chain.Add(transform.NewNoiseMeter(10))
	chain.Add(transform.NewSilenceTrimmer(20, os.TempDir()))

	rawSource := micsource.NewMalgoSource(cfg.Listener.SampleRate)
	source := micsource.NewRestartableSource(rawSource, logging.WithComponent(logger, "micsource"))
	if err := source.Open(); err != nil {
		log.Fatalf("listenerd: opening microphone: %v", err)
	}
	defer source.Close()

	queue := pipeline.NewQueue(cfg.Listener.SampleRate, cfg.Listener.SampleWidth, logging.WithComponent(logger, "pipeline"))
	producer := pipeline.NewProducer(queue)

	busURL := os.Getenv("BUS_URL")
	if busURL == "" {
		busURL = "ws://127.0.0.1:8181/core"
	}
	busClient := bus.NewWSClient(busURL, logging.WithComponent(logger, "bus"))

	rCfg := recognizer.DefaultConfig()
	rCfg.SampleRate = cfg.Listener.SampleRate
	rCfg.SampleWidth = cfg.Listener.SampleWidth
	rCfg.PhonemeDurationMS = cfg.Listener.PhonemeDuration
	rCfg.Multiplier = cfg.Listener.Multiplier
	rCfg.EnergyRatio = cfg.Listener.EnergyRatio
	rCfg.StandUpWord = cfg.Listener.StandUpWord
	rCfg.MuteDuringOutput = cfg.Listener.MuteDuringOutput
	rCfg.RecordWakeWords = cfg.Listener.RecordWakeWords
	rCfg.Lang = cfg.Lang

	rec := recognizer.NewRecognizer(rCfg, source, hwSet, chain, sttHolder, producer,
		recognizer.WithEmitter(busClient),
		recognizer.WithLogger(logging.WithComponent(logger, "recognizer")),
	)

	consumer := pipeline.NewConsumer(queue, sttHolder, busClient,
		logging.WithComponent(logger, "pipeline"), cfg.Lang, cfg.Listener.SampleRate,
		rec.Unmute, func() bool { return rec.State().ListenMode() != recognizer.ModeContinuous },
	)

	reloader := reload.New(reload.Config{
		Initial:         cfg,
		Path:            cfgPath,
		Hotwords:        hwSet,
		HotwordRegistry: hwRegistry,
		STTHolder:       sttHolder,
		STTRegistry:     sttRegistry,
		Log:             logging.WithComponent(logger, "reload"),
	})

	service.NewFacade(service.Config{
		Bus:           busClient,
		Adapter:       sttHolder,
		Chain:         chain,
		Hotwords:      hwSet,
		State:         rec.State(),
		Mic:           rec,
		Reloader:      reloader,
		Log:           logging.WithComponent(logger, "service"),
		SampleRate:    cfg.Listener.SampleRate,
		SampleWidth:   cfg.Listener.SampleWidth,
		Lang:          cfg.Lang,
		OnlineModule:  cfg.STT.Module,
		OfflineModule: cfg.STT.OfflineModule,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := busClient.Connect(ctx); err != nil {
		log.Fatalf("listenerd: connecting to messagebus: %v", err)
	}
	defer busClient.Close()

	rec.Start()

	errCh := make(chan error, 2)
	go func() { errCh <- rec.Run(ctx) }()
	go func() { errCh <- consumer.Run(ctx) }()

	logger.Info("listenerd: running", "bus", busURL, "stt_module", cfg.STT.Module, "lang", cfg.Lang)

	<-ctx.Done()
	queue.Close()
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && ctx.Err() == nil {
			logger.Error("listenerd: component exited with error", "err", err)
		}
	}
}

// loadConfig resolves the config path from CONFIG_PATH, falling back to
// the user config directory, and loads it. A missing file is not fatal:
// the process starts from [config.Default] and the reload controller
// persists the first applied patch to path.
func loadConfig(logger logging.Logger) (*config.Config, string) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		p, err := config.UserConfigPath()
		if err != nil {
			logger.Warn("listenerd: resolving user config path", "err", err)
		} else {
			path = p
		}
	}
	if path == "" {
		return config.Default(), path
	}
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(errors.Unwrap(err)) {
			logger.Info("listenerd: no config file found, starting from defaults", "path", path)
			return config.Default(), path
		}
		log.Fatalf("listenerd: loading config: %v", err)
	}
	return cfg, path
}

func buildHotwordSet(cfg *config.Config, registry *hotword.Registry) *hotword.Set {
	set := hotword.NewSet()
	for name, hw := range cfg.Hotwords {
		spec := hotword.Spec{
			Name:      name,
			EngineID:  hw.Module,
			Active:    hw.Active,
			Listen:    hw.Listen,
			Utterance: hw.Utterance,
			Sound:     hw.Sound,
		}
		set.Add(spec, registry.Load(spec, cfg.Lang))
	}
	return set
}

// registerSTTProviders wires every STT provider this process knows how
// to build, one per recognized API key present in the environment. A
// module absent from the environment is simply never registered;
// stt.NewAdapter's fallback/default chain handles a configured module
// that didn't make it into the registry. groq and openai share the
// same multipart-upload shape and go through the generic HTTPProvider;
// deepgram (raw PCM body) and assemblyai (upload/submit/poll) each need
// their own request shape and get a dedicated provider type.
func registerSTTProviders(registry *stt.Registry, logger logging.Logger) {
	type multipartProvider struct {
		name  string
		url   string
		model string
	}
	multipart := []multipartProvider{
		{name: "groq", url: "https://api.groq.com/openai/v1/audio/transcriptions", model: "whisper-large-v3-turbo"},
		{name: "openai", url: "https://api.openai.com/v1/audio/transcriptions", model: "whisper-1"},
	}
	for _, p := range multipart {
		envKey := strings.ToUpper(p.name) + "_API_KEY"
		apiKey := os.Getenv(envKey)
		if apiKey == "" {
			continue
		}
		p := p
		err := registry.Register(p.name, func(settings map[string]interface{}) (stt.Provider, error) {
			return stt.NewHTTPProvider(stt.HTTPProviderConfig{
				Name: p.name, URL: p.url, APIKey: apiKey, Model: p.model,
			}), nil
		})
		if err != nil {
			logger.Warn("listenerd: registering stt provider", "provider", p.name, "err", err)
		}
	}

	if apiKey := os.Getenv("DEEPGRAM_API_KEY"); apiKey != "" {
		err := registry.Register("deepgram", func(settings map[string]interface{}) (stt.Provider, error) {
			return stt.NewDeepgramProvider(apiKey), nil
		})
		if err != nil {
			logger.Warn("listenerd: registering stt provider", "provider", "deepgram", "err", err)
		}
	}
	if apiKey := os.Getenv("ASSEMBLYAI_API_KEY"); apiKey != "" {
		err := registry.Register("assemblyai", func(settings map[string]interface{}) (stt.Provider, error) {
			return stt.NewAssemblyAIProvider(apiKey), nil
		})
		if err != nil {
			logger.Warn("listenerd: registering stt provider", "provider", "assemblyai", "err", err)
		}
	}

	// google is the documented default module (config.Default's
	// stt.module, stt.DefaultModule's last-resort fallback), dialed
	// eagerly against Application Default Credentials or an explicit
	// credentials file named by GOOGLE_APPLICATION_CREDENTIALS.
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		google, err := stt.NewGoogleProvider(context.Background(), "")
		if err != nil {
			logger.Warn("listenerd: dialing google speech client", "err", err)
		} else if err := registry.Register("google", func(settings map[string]interface{}) (stt.Provider, error) {
			return google, nil
		}); err != nil {
			logger.Warn("listenerd: registering stt provider", "provider", "google", "err", err)
		}
	}
}
