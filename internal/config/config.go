// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"pocket/internal/log"
	"pocket/internal/midi"
	"pocket/internal/pitch"
	"pocket/internal/tempo"

	"gopkg.in/yaml.v3"
)

// Hardware and processing limits.
const (
	MinDeviceID   = -1     // -1 selects the system default input device.
	MinSampleRate = 8000   // Lowest usable sample rate (Hz).
	MaxSampleRate = 192000 // Highest supported sample rate (Hz).
	MinFrameSize  = 64     // Shortest analysis window worth estimating on.
)

// DefaultPath is the config file picked up when no path is given.
const DefaultPath = "config.yaml"

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug      bool             `yaml:"debug"`     // Force debug logging.
	LogLevel   string           `yaml:"log_level"` // "debug", "info", "warn" or "error".
	Audio      AudioConfig      `yaml:"audio"`
	Pitch      PitchConfig      `yaml:"pitch"`
	Tempo      TempoConfig      `yaml:"tempo"`
	MIDI       MIDIConfig       `yaml:"midi"`
	Server     ServerConfig     `yaml:"server"`
	Transport  TransportConfig  `yaml:"transport"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
}

// AudioConfig holds capture and framing settings.
type AudioConfig struct {
	InputDevice   int     `yaml:"input_device"`   // PortAudio device index (-1 for default).
	SampleRate    float64 `yaml:"sample_rate"`    // Capture rate in Hz.
	FrameSize     int     `yaml:"frame_size"`     // Analysis window in samples.
	HopSize       int     `yaml:"hop_size"`       // Samples between consecutive windows.
	InputChannels int     `yaml:"input_channels"` // Channels opened on the device; the first is analysed.
	LowLatency    bool    `yaml:"low_latency"`    // Request the device's low latency setting.
}

// PitchConfig holds the estimator thresholds.
type PitchConfig struct {
	NoiseFloor       float64 `yaml:"noise_floor"`
	TriggerThreshold float64 `yaml:"trigger_threshold"`
	MaxFrameSize     int     `yaml:"max_frame_size"`
}

// TempoConfig holds tap tempo settings.
type TempoConfig struct {
	Staleness time.Duration `yaml:"staleness"` // Taps older than this are forgotten.
}

// MIDIConfig holds export settings.
type MIDIConfig struct {
	DefaultBPM float64 `yaml:"default_bpm"` // Used when a note list carries no tempo.
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxSessions    int      `yaml:"max_sessions"` // Open tap sessions before creation is refused.
}

// TransportConfig holds settings for publishing live readings.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve readings on /ws.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Publish readings over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // host:port receiving packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between packets.
}

// TranscribeConfig points at the note transcription service.
type TranscribeConfig struct {
	Endpoint string        `yaml:"endpoint"` // Empty disables transcription.
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:   MinDeviceID,
			SampleRate:    44100,
			FrameSize:     pitch.DefaultFrameSize,
			HopSize:       pitch.DefaultFrameSize / 2,
			InputChannels: 1,
		},
		Pitch: PitchConfig{
			NoiseFloor:       pitch.DefaultNoiseFloor,
			TriggerThreshold: pitch.DefaultTriggerThreshold,
			MaxFrameSize:     pitch.DefaultMaxFrameSize,
		},
		Tempo: TempoConfig{
			Staleness: tempo.DefaultStaleness,
		},
		MIDI: MIDIConfig{
			DefaultBPM: midi.DefaultBPM,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			MaxSessions:    1024,
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz.
		},
		Transcribe: TranscribeConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is
// empty, DefaultPath is used when it exists and the built-in defaults otherwise.
// Environment overrides are applied last, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not a known level", c.LogLevel)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d, %d], got %v", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be positive, got %d", a.InputChannels)
	}

	p := c.Pitch
	if p.MaxFrameSize < MinFrameSize {
		return fmt.Errorf("pitch.max_frame_size must be >= %d, got %d", MinFrameSize, p.MaxFrameSize)
	}
	if a.FrameSize < MinFrameSize || a.FrameSize > p.MaxFrameSize {
		return fmt.Errorf("audio.frame_size must be in [%d, %d], got %d", MinFrameSize, p.MaxFrameSize, a.FrameSize)
	}
	if a.HopSize <= 0 || a.HopSize > a.FrameSize {
		return fmt.Errorf("audio.hop_size must be in (0, %d], got %d", a.FrameSize, a.HopSize)
	}
	if !(p.NoiseFloor > 0 && p.NoiseFloor < 1) {
		return fmt.Errorf("pitch.noise_floor must be in (0, 1), got %v", p.NoiseFloor)
	}
	if !(p.TriggerThreshold > 0 && p.TriggerThreshold < 1) {
		return fmt.Errorf("pitch.trigger_threshold must be in (0, 1), got %v", p.TriggerThreshold)
	}

	if c.Tempo.Staleness <= 0 {
		return fmt.Errorf("tempo.staleness must be positive, got %s", c.Tempo.Staleness)
	}
	if !(c.MIDI.DefaultBPM > 0) {
		return fmt.Errorf("midi.default_bpm must be positive, got %v", c.MIDI.DefaultBPM)
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.Server.MaxSessions <= 0 {
		return fmt.Errorf("server.max_sessions must be positive, got %d", c.Server.MaxSessions)
	}

	t := c.Transport
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return errors.New("transport.udp_target_address must be set when UDP is enabled")
		}
		if _, _, err := net.SplitHostPort(t.UDPTargetAddress); err != nil {
			return fmt.Errorf("transport.udp_target_address %q: %w", t.UDPTargetAddress, err)
		}
		if t.UDPSendInterval <= 0 {
			return errors.New("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}

	if c.Transcribe.Endpoint != "" && c.Transcribe.Timeout <= 0 {
		return errors.New("transcribe.timeout must be positive when an endpoint is set")
	}

	return nil
}

// Level returns the configured log level, DEBUG when Debug is set.
func (c *Config) Level() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// Estimator returns the pitch estimator thresholds.
func (c *Config) Estimator() pitch.Config {
	return pitch.Config{
		NoiseFloor:       c.Pitch.NoiseFloor,
		TriggerThreshold: c.Pitch.TriggerThreshold,
		MaxFrameSize:     c.Pitch.MaxFrameSize,
	}
}

func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			log.Debugf("Config: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Debugf("Config: Overriding log_level from env: %s", val)
	}
	// ENV_SERVER_ADDR
	if val, ok := os.LookupEnv("ENV_SERVER_ADDR"); ok {
		c.Server.Addr = val
		log.Debugf("Config: Overriding server.addr from env: %s", val)
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			log.Debugf("Config: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		log.Debugf("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			log.Debugf("Config: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}

	// ENV_TRANSCRIBE_ENDPOINT
	if val, ok := os.LookupEnv("ENV_TRANSCRIBE_ENDPOINT"); ok {
		c.Transcribe.Endpoint = val
		log.Debugf("Config: Overriding transcribe.endpoint from env: %s", val)
	}
}
