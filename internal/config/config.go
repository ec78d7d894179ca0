package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PathsConfig holds where images and the event log are written.
type PathsConfig struct {
	ImagesDir string `yaml:"images_dir"` // captured frames (default: "images")
	LogsDir   string `yaml:"logs_dir"`   // event log directory (default: "logs")
	EventLog  string `yaml:"event_log"`  // event log file name (default: "event_log.json")
}

// CameraConfig describes how to reach the capture device.
// Type selects a concrete implementation ("v4l2", "ffmpeg" or "mock").
type CameraConfig struct {
	Type         string `yaml:"type"`          // e.g., "v4l2"
	Device       string `yaml:"device"`        // "/dev/video0", an RTSP URL, a file...
	Format       string `yaml:"format"`        // v4l2 pixel format: "YUYV" or "MJPG"
	Resolution   string `yaml:"resolution"`    // "WxH", e.g., "640x480"
	TimeoutS     int    `yaml:"timeout_s"`     // frame wait timeout (seconds)
	WarmupFrames int    `yaml:"warmup_frames"` // frames dropped before the kept one
	FFmpegPath   string `yaml:"ffmpeg_path"`   // ffmpeg binary (default: "ffmpeg")
	InputFormat  string `yaml:"input_format"`  // ffmpeg -f value for the input, e.g., "v4l2"
	MockFail     bool   `yaml:"mock_fail"`     // mock camera returns no frame
}

// ImageConfig controls how a captured frame is written to disk.
type ImageConfig struct {
	JPEGQuality      int  `yaml:"jpeg_quality"`      // 1-100 (default: 90)
	MaxWidth         int  `yaml:"max_width"`         // downscale wider frames, 0 = keep
	TimestampOverlay bool `yaml:"timestamp_overlay"` // stamp capture time on the frame
}

// TriggerConfig configures the PIR sensor watcher.
type TriggerConfig struct {
	PIRPin     int  `yaml:"pir_pin"`     // GPIO input pin (BCM)
	PollMs     int  `yaml:"poll_ms"`     // sampling period
	CooldownMs int  `yaml:"cooldown_ms"` // ignore edges for this long after a trigger
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// NotifyConfig holds SMTP settings. Notifications are off when SMTPHost is empty.
type NotifyConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"` // prefer LVS_SMTP_PASSWORD in .env
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// LoggingConfig configures the debug logger.
type LoggingConfig struct {
	DebugLevel int    `yaml:"debug_level"`  // 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	File       string `yaml:"file"`         // "" disables file output
	MaxSizeMB  int    `yaml:"max_size_mb"`  // rotate after this size
	MaxBackups int    `yaml:"max_backups"`  // rotated files kept
	MaxAgeDays int    `yaml:"max_age_days"` // rotated files age limit
	JSON       bool   `yaml:"json"`         // raw JSON lines in the file instead of text
}

// Config aggregates all application configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Camera  CameraConfig  `yaml:"camera"`
	Image   ImageConfig   `yaml:"image"`
	Trigger TriggerConfig `yaml:"trigger"`
	Notify  NotifyConfig  `yaml:"notify"`
	Logging LoggingConfig `yaml:"logging"`
}

// Load reads a YAML file, applies .env / LVS_* overrides and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides, fills defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Paths.ImagesDir == "" {
		cfg.Paths.ImagesDir = "images"
	}
	if cfg.Paths.LogsDir == "" {
		cfg.Paths.LogsDir = "logs"
	}
	if cfg.Paths.EventLog == "" {
		cfg.Paths.EventLog = "event_log.json"
	}

	if cfg.Camera.Type == "" {
		cfg.Camera.Type = "v4l2"
	}
	if cfg.Camera.Device == "" {
		cfg.Camera.Device = "/dev/video0"
	}
	if cfg.Camera.Format == "" {
		cfg.Camera.Format = "YUYV"
	}
	if cfg.Camera.Resolution == "" {
		cfg.Camera.Resolution = "640x480"
	}
	if cfg.Camera.TimeoutS <= 0 {
		cfg.Camera.TimeoutS = 5
	}
	if cfg.Camera.FFmpegPath == "" {
		cfg.Camera.FFmpegPath = "ffmpeg"
	}

	if cfg.Image.JPEGQuality <= 0 {
		cfg.Image.JPEGQuality = 90
	}

	if cfg.Trigger.PollMs <= 0 {
		cfg.Trigger.PollMs = 100
	}
	if cfg.Trigger.CooldownMs <= 0 {
		cfg.Trigger.CooldownMs = 5000
	}

	if cfg.Notify.SMTPPort <= 0 {
		cfg.Notify.SMTPPort = 587
	}

	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 30
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Camera.Type {
	case "v4l2", "ffmpeg", "mock":
	default:
		return fmt.Errorf("camera.type must be one of v4l2, ffmpeg, mock, got %q", c.Camera.Type)
	}
	if _, _, err := c.Camera.Size(); err != nil {
		return err
	}
	if c.Camera.WarmupFrames < 0 {
		return fmt.Errorf("camera.warmup_frames must be >= 0, got %d", c.Camera.WarmupFrames)
	}
	if c.Image.JPEGQuality > 100 {
		return fmt.Errorf("image.jpeg_quality must be between 1 and 100, got %d", c.Image.JPEGQuality)
	}
	if c.Image.MaxWidth < 0 {
		return fmt.Errorf("image.max_width must be >= 0, got %d", c.Image.MaxWidth)
	}
	if c.Logging.DebugLevel < 0 || c.Logging.DebugLevel > 4 {
		return fmt.Errorf("logging.debug_level must be between 0 and 4, got %d", c.Logging.DebugLevel)
	}
	if strings.ContainsAny(c.Paths.EventLog, `/\`) {
		return fmt.Errorf("paths.event_log must be a file name, got %q", c.Paths.EventLog)
	}
	if c.Notify.Enabled() {
		if c.Notify.From == "" {
			return errors.New("notify.from is required when notify.smtp_host is set")
		}
		if len(c.Notify.To) == 0 {
			return errors.New("notify.to is required when notify.smtp_host is set")
		}
	}
	return nil
}

// Size parses Resolution ("WxH").
func (c CameraConfig) Size() (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(c.Resolution), "x")
	if !ok {
		return 0, 0, fmt.Errorf("camera.resolution must be WxH, got %q", c.Resolution)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("camera.resolution: bad width in %q", c.Resolution)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("camera.resolution: bad height in %q", c.Resolution)
	}
	return width, height, nil
}

// Timeout returns the frame wait timeout.
func (c CameraConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutS) * time.Second
}

// Enabled reports whether e-mail notifications are configured.
func (n NotifyConfig) Enabled() bool {
	return n.SMTPHost != ""
}

// EventLogPath returns the full path of the event log file.
func (c *Config) EventLogPath() string {
	return filepath.Join(c.Paths.LogsDir, c.Paths.EventLog)
}

// PollInterval returns the PIR sampling period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trigger.PollMs) * time.Millisecond
}

// Cooldown returns the minimum time between two PIR triggers.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Trigger.CooldownMs) * time.Millisecond
}

// loadDotEnv loads path into the process environment. A missing file is fine.
// Variables already set in the environment win over the file.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides config values from LVS_* environment variables.
func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"LVS_IMAGES_DIR":    &cfg.Paths.ImagesDir,
		"LVS_LOGS_DIR":      &cfg.Paths.LogsDir,
		"LVS_EVENT_LOG":     &cfg.Paths.EventLog,
		"LVS_CAMERA_TYPE":   &cfg.Camera.Type,
		"LVS_CAMERA_DEVICE": &cfg.Camera.Device,
		"LVS_SMTP_HOST":     &cfg.Notify.SMTPHost,
		"LVS_SMTP_USERNAME": &cfg.Notify.Username,
		"LVS_SMTP_PASSWORD": &cfg.Notify.Password,
		"LVS_LOG_FILE":      &cfg.Logging.File,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LVS_DEBUG_LEVEL": &cfg.Logging.DebugLevel,
		"LVS_SMTP_PORT":   &cfg.Notify.SMTPPort,
		"LVS_PIR_PIN":     &cfg.Trigger.PIRPin,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: cannot parse %q as int: %w", key, v, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("LVS_MOCK_GPIO"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LVS_MOCK_GPIO: cannot parse %q as bool: %w", v, err)
		}
		cfg.Trigger.MockGPIO = b
	}
	return nil
}
