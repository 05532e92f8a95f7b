// Package config loads service configuration from file and environment.
// Every workflow policy constant (thresholds, countdowns, dwells) lives
// here rather than as a literal in the workflow code.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Camera    CameraConfig    `mapstructure:"camera"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Detection DetectionConfig `mapstructure:"detection"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type CameraConfig struct {
	Model        string   `mapstructure:"model"`
	StillCommand []string `mapstructure:"still_command"`
	VideoCommand []string `mapstructure:"video_command"`
	VideoOutput  string   `mapstructure:"video_output"`
}

type AudioConfig struct {
	ToneCommand  []string `mapstructure:"tone_command"`
	ToneDir      string   `mapstructure:"tone_dir"`
	SpeakCommand []string `mapstructure:"speak_command"`
	AlarmText    string   `mapstructure:"alarm_text"`
	PassedText   string   `mapstructure:"passed_text"`
	FailedText   string   `mapstructure:"failed_text"`
}

// DetectionConfig is the workflow timing policy. Raising StableSeconds makes
// the stationarity requirement stricter; the dwell values are deliberate
// dead time between captures and are not skippable.
type DetectionConfig struct {
	AccelDeltaThreshold float64       `mapstructure:"accel_delta_threshold"`
	StableSeconds       int           `mapstructure:"stable_seconds"`
	SettleSeconds       int           `mapstructure:"settle_seconds"`
	ReadyDelay          time.Duration `mapstructure:"ready_delay"`
	CaptureDwell        time.Duration `mapstructure:"capture_dwell"`
	VideoDuration       time.Duration `mapstructure:"video_duration"`
	ResultSeconds       int           `mapstructure:"result_seconds"`
	CuePause            time.Duration `mapstructure:"cue_pause"`
}

type ExtractConfig struct {
	LuminanceThreshold uint8   `mapstructure:"luminance_threshold"`
	Contrast           float64 `mapstructure:"contrast"`
	Brightness         float64 `mapstructure:"brightness"`
}

type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	ResultTopic    string        `mapstructure:"result_topic"`
	StatusTopic    string        `mapstructure:"status_topic"`
	MotionTopic    string        `mapstructure:"motion_topic"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.allow_origins", []string{"*"})

	viper.SetDefault("camera.still_command", []string{"rpicam-still", "-n", "-t", "1", "-o", "-"})
	viper.SetDefault("camera.video_command", []string{"rpicam-vid", "-n", "-t", "0", "-o", "/tmp/stillwatch-video.h264"})
	viper.SetDefault("camera.video_output", "/tmp/stillwatch-video.h264")

	viper.SetDefault("audio.tone_command", []string{"aplay", "-q"})
	viper.SetDefault("audio.tone_dir", "/usr/share/stillwatch/tones")
	viper.SetDefault("audio.speak_command", []string{"espeak"})
	viper.SetDefault("audio.alarm_text", "do not move the vehicle, second capture in progress")
	viper.SetDefault("audio.passed_text", "verification passed")
	viper.SetDefault("audio.failed_text", "verification failed")

	viper.SetDefault("detection.accel_delta_threshold", 0.5)
	viper.SetDefault("detection.stable_seconds", 5)
	viper.SetDefault("detection.settle_seconds", 15)
	viper.SetDefault("detection.ready_delay", 2*time.Second)
	viper.SetDefault("detection.capture_dwell", 5*time.Second)
	viper.SetDefault("detection.video_duration", 3*time.Second)
	viper.SetDefault("detection.result_seconds", 10)
	viper.SetDefault("detection.cue_pause", 500*time.Millisecond)

	viper.SetDefault("extract.luminance_threshold", 90)
	viper.SetDefault("extract.contrast", 1.4)
	viper.SetDefault("extract.brightness", 10.0)

	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.client_id", "stillwatch")
	viper.SetDefault("mqtt.result_topic", "stillwatch/results")
	viper.SetDefault("mqtt.status_topic", "stillwatch/status")
	viper.SetDefault("mqtt.motion_topic", "stillwatch/motion")
	viper.SetDefault("mqtt.connect_timeout", 10*time.Second)

	viper.SetDefault("aws.region", "ap-south-1")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.pretty", false)
}

// Load reads the config file (optional) and the STILLWATCH_* environment,
// then validates the result.
func Load(path string) (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/stillwatch")
	}
	viper.SetEnvPrefix("STILLWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Defaults plus environment are a valid configuration.
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Detection.AccelDeltaThreshold <= 0 {
		return fmt.Errorf("detection.accel_delta_threshold must be positive")
	}
	if c.Detection.StableSeconds <= 0 {
		return fmt.Errorf("detection.stable_seconds must be positive")
	}
	if c.Detection.SettleSeconds < 0 || c.Detection.ResultSeconds < 0 {
		return fmt.Errorf("countdown seconds must not be negative")
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required, the motion sensor stream is delivered over MQTT")
	}
	return nil
}
