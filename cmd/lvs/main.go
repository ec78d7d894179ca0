package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/cjeanneret/lvs/internal/config"
	"github.com/cjeanneret/lvs/internal/debug"
	"github.com/cjeanneret/lvs/internal/eventlog"
	"github.com/cjeanneret/lvs/internal/hw/camera"
	"github.com/cjeanneret/lvs/internal/hw/gpio"
	"github.com/cjeanneret/lvs/internal/logic/capture"
	"github.com/cjeanneret/lvs/internal/logic/event"
	"github.com/cjeanneret/lvs/internal/logic/motion"
	"github.com/cjeanneret/lvs/internal/logic/trigger"
	"github.com/cjeanneret/lvs/internal/notify"
	"github.com/cjeanneret/lvs/internal/paths"
	"github.com/cjeanneret/lvs/internal/web"
)

// Trigger modes for -trigger.
const (
	triggerOnce = "once"
	triggerGPIO = "gpio"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	mode := flag.String("trigger", triggerOnce, "motion source: once (simulate one detection) or gpio (PIR sensor)")
	flag.Parse()

	os.Exit(run(*cfgPath, *mode, webPort.port()))
}

// run wires the components and blocks until the work for mode is done.
// It returns the process exit code; deferred cleanup has run by then.
func run(cfgPath, mode string, webPort int) int {
	if err := validateTriggerMode(mode); err != nil {
		log.Printf("invalid flag: %v", err)
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("load config failed: %v", err)
		return 1
	}

	// Initialize debug system
	debug.Init(loggingOptions(cfg.Logging))
	defer func() {
		if err := debug.Close(); err != nil {
			log.Printf("closing log file failed: %v", err)
		}
	}()
	debug.Section("Initialization")
	debug.Value("Config path", cfgPath)
	debug.Value("Debug level", debug.Level())
	debug.Value("Trigger mode", mode)

	debug.Step(1, "Preparing directories")
	if err := paths.Ensure(cfg.Paths.ImagesDir, cfg.Paths.LogsDir); err != nil {
		debug.Errorf("prepare directories failed: %v", err)
		return 1
	}

	debug.Step(2, "Initializing camera")
	ctrl, store, err := newController(cfg)
	if err != nil {
		debug.Errorf("init failed: %v", err)
		return 1
	}
	debug.PrintStruct("Camera config", cfg.Camera)

	var broadcaster *web.StatusBroadcaster
	if webPort > 0 {
		broadcaster = web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	}

	// Without a long-running surface, simulate one detection and exit.
	if mode == triggerOnce && webPort == 0 {
		if _, err := runOnce(ctx, ctrl, nil); err != nil {
			return 1
		}
		return 0
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if mode == triggerGPIO {
		debug.Step(3, "Initializing GPIO driver")
		debug.Value("Mock GPIO", cfg.Trigger.MockGPIO)
		gpioDriver, err := gpio.NewDriver(cfg.Trigger.MockGPIO)
		if err != nil {
			debug.Errorf("init GPIO failed: %v", err)
			return 1
		}
		defer func() {
			if err := gpioDriver.Close(); err != nil {
				debug.Errorf("closing GPIO driver failed: %v", err)
			}
		}()

		watcher, err := trigger.NewWatcher(gpioDriver, trigger.Config{
			Pin:      cfg.Trigger.PIRPin,
			Poll:     cfg.PollInterval(),
			Cooldown: cfg.Cooldown(),
		}, func(ctx context.Context) {
			rec, err := ctrl.HandleMotion(ctx)
			if err != nil {
				return // already logged
			}
			if broadcaster != nil {
				broadcaster.BroadcastEvent(rec)
			}
		})
		if err != nil {
			debug.Errorf("init PIR watcher failed: %v", err)
			return 1
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("PIR watcher: %w", err)
				cancel()
			}
		}()
	}

	if webPort > 0 {
		srv, err := web.NewServer(fmt.Sprintf(":%d", webPort), web.Deps{
			Broadcaster: broadcaster,
			Trigger:     ctrl.TryHandleMotion,
			Events:      store,
			ImagesDir:   cfg.Paths.ImagesDir,
		})
		if err != nil {
			debug.Errorf("init web server failed: %v", err)
			cancel()
			wg.Wait()
			return 1
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				errCh <- fmt.Errorf("web server: %w", err)
				cancel()
			}
		}()
	}

	if mode == triggerOnce {
		// Simulate one detection, then keep serving. Failures are logged.
		_, _ = runOnce(ctx, ctrl, broadcaster)
	}

	wg.Wait()
	close(errCh)
	code := 0
	for err := range errCh {
		debug.Error(err)
		code = 1
	}
	return code
}

// runOnce simulates a single motion detection. The recorded event goes to
// broadcaster when one is given.
func runOnce(ctx context.Context, ctrl *motion.Controller, broadcaster *web.StatusBroadcaster) (eventlog.Record, error) {
	fmt.Println("Simulating motion detection...")
	rec, err := ctrl.HandleMotion(ctx)
	if err != nil {
		return eventlog.Record{}, err
	}
	debug.Summary(fmt.Sprintf("%s: %s", rec.Type, rec.Description))
	if broadcaster != nil {
		broadcaster.BroadcastEvent(rec)
	}
	return rec, nil
}

// newController builds the capture -> record -> notify chain from cfg.
func newController(cfg *config.Config) (*motion.Controller, *eventlog.Store, error) {
	open, err := camera.NewOpener(cfg.Camera)
	if err != nil {
		return nil, nil, fmt.Errorf("camera: %w", err)
	}
	capturer := capture.NewCapturer(open, capture.Params{
		Dir:              cfg.Paths.ImagesDir,
		JPEGQuality:      cfg.Image.JPEGQuality,
		MaxWidth:         cfg.Image.MaxWidth,
		TimestampOverlay: cfg.Image.TimestampOverlay,
	})

	store := eventlog.NewStore(cfg.EventLogPath())
	recorder := event.NewRecorder(store)

	var notifier motion.Notifier
	if cfg.Notify.Enabled() {
		notifier = notify.NewMailer(cfg.Notify)
		debug.Verbose("E-mail notifications to %v via %s:%d", cfg.Notify.To, cfg.Notify.SMTPHost, cfg.Notify.SMTPPort)
	}

	return motion.NewController(capturer, recorder, notifier), store, nil
}

func loggingOptions(l config.LoggingConfig) debug.Options {
	return debug.Options{
		Level:      l.DebugLevel,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		JSON:       l.JSON,
	}
}

func validateTriggerMode(mode string) error {
	switch mode {
	case triggerOnce, triggerGPIO:
		return nil
	default:
		return fmt.Errorf("-trigger must be %q or %q, got %q", triggerOnce, triggerGPIO, mode)
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
