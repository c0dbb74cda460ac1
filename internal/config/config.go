package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Playback tuning. Zero durations mean the package defaults.
type Playback struct {
	AutoPlay        bool `yaml:"autoplay"`
	AutoPlayDelayMs int  `yaml:"autoplay_delay_ms"`
	CharDelayMs     int  `yaml:"char_delay_ms"`
	FPS             int  `yaml:"fps"`
	Offload         bool `yaml:"offload"` // sample animations on a worker goroutine
	WorkerQueue     int  `yaml:"worker_queue"`
}

type Media struct {
	Dir                string `yaml:"dir"`
	Prober             string `yaml:"prober"` // "ffprobe" | "none"
	ProbeTimeoutMs     int    `yaml:"probe_timeout_ms"`
	VideoLoadTimeoutMs int    `yaml:"video_load_timeout_ms"`
}

type Store struct {
	AppName     string `yaml:"app_name"`
	SaveDelayMs int    `yaml:"save_delay_ms"`
}

type Config struct {
	ScriptPath string `yaml:"script"`
	Addr       string `yaml:"addr"`
	LogLevel   string `yaml:"log_level"`
	QRPath     string `yaml:"qr,omitempty"`
	ShowStats  bool   `yaml:"show_stats"`

	Playback Playback `yaml:"playback"`
	Media    Media    `yaml:"media"`
	Store    Store    `yaml:"store"`

	BuildVersion string `yaml:"-"`
}

// Default returns the settings used when neither flags nor a file say otherwise.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		LogLevel: "info",
		Playback: Playback{
			AutoPlayDelayMs: 500,
			CharDelayMs:     50,
			FPS:             60,
			Offload:         true,
			WorkerQueue:     8,
		},
		Media: Media{
			Dir:                ".",
			Prober:             "ffprobe",
			ProbeTimeoutMs:     5000,
			VideoLoadTimeoutMs: 10000,
		},
		Store: Store{
			AppName:     "vnplay",
			SaveDelayMs: 500,
		},
	}
}

func (p Playback) AutoPlayDelay() time.Duration { return ms(p.AutoPlayDelayMs) }
func (p Playback) CharDelay() time.Duration     { return ms(p.CharDelayMs) }

// FrameInterval is zero when FPS is unset
func (p Playback) FrameInterval() time.Duration {
	if p.FPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(p.FPS)
}

func (m Media) ProbeTimeout() time.Duration     { return ms(m.ProbeTimeoutMs) }
func (m Media) VideoLoadTimeout() time.Duration { return ms(m.VideoLoadTimeoutMs) }

func (s Store) SaveDelay() time.Duration { return ms(s.SaveDelayMs) }

func ms(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Millisecond
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Merge copies every non-zero value of file over c. Booleans only turn on.
func (c *Config) Merge(file *Config) {
	if file == nil {
		return
	}
	c.ScriptPath = firstNonEmpty(file.ScriptPath, c.ScriptPath)
	c.Addr = firstNonEmpty(file.Addr, c.Addr)
	c.LogLevel = firstNonEmpty(file.LogLevel, c.LogLevel)
	c.QRPath = firstNonEmpty(file.QRPath, c.QRPath)
	c.ShowStats = c.ShowStats || file.ShowStats

	c.Playback.AutoPlay = c.Playback.AutoPlay || file.Playback.AutoPlay
	c.Playback.Offload = c.Playback.Offload || file.Playback.Offload
	c.Playback.AutoPlayDelayMs = firstPositive(file.Playback.AutoPlayDelayMs, c.Playback.AutoPlayDelayMs)
	c.Playback.CharDelayMs = firstPositive(file.Playback.CharDelayMs, c.Playback.CharDelayMs)
	c.Playback.FPS = firstPositive(file.Playback.FPS, c.Playback.FPS)
	c.Playback.WorkerQueue = firstPositive(file.Playback.WorkerQueue, c.Playback.WorkerQueue)

	c.Media.Dir = firstNonEmpty(file.Media.Dir, c.Media.Dir)
	c.Media.Prober = firstNonEmpty(file.Media.Prober, c.Media.Prober)
	c.Media.ProbeTimeoutMs = firstPositive(file.Media.ProbeTimeoutMs, c.Media.ProbeTimeoutMs)
	c.Media.VideoLoadTimeoutMs = firstPositive(file.Media.VideoLoadTimeoutMs, c.Media.VideoLoadTimeoutMs)

	c.Store.AppName = firstNonEmpty(file.Store.AppName, c.Store.AppName)
	c.Store.SaveDelayMs = firstPositive(file.Store.SaveDelayMs, c.Store.SaveDelayMs)
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func firstPositive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
