// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration is the full service configuration, loaded once at startup.
type Configuration struct {
	Service       ServiceConfig
	Realtime      RealtimeConfig
	Audio         AudioConfig
	Kafka         KafkaConfig
	Ingress       IngressConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the service instance.
type ServiceConfig struct {
	Principal string
}

// RealtimeConfig configures the realtime transcription sessions.
type RealtimeConfig struct {
	APIKey             string
	Model              string
	Endpoint           string
	LocalVADThreshold  float64
	RemoteVADThreshold float64
	ConnectTimeout     time.Duration
	InPersonMode       bool
	RemoteSourceID     string
}

// AudioConfig configures local capture.
type AudioConfig struct {
	Enabled       bool
	DeviceID      string
	SampleRate    int
	FrameInterval time.Duration
}

// KafkaConfig configures the transcript event publisher.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Principal    string
}

// IngressConfig configures the audio ingress HTTP server.
type IngressConfig struct {
	Addr string
}

// ObservabilityConfig configures logging and metrics exposure.
type ObservabilityConfig struct {
	LogLevel    string
	MetricsAddr string
}

// Load reads configuration from environment variables, applying defaults
// for anything unset or unparsable.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "meeting-assistant")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
		},
		Realtime: RealtimeConfig{
			APIKey:             os.Getenv("OPENAI_API_KEY"),
			Model:              envOrDefault("REALTIME_MODEL", "gpt-4o-realtime-preview"),
			Endpoint:           envOrDefault("REALTIME_ENDPOINT", "wss://api.openai.com/v1/realtime"),
			LocalVADThreshold:  envOrDefaultFloat("REALTIME_LOCAL_VAD_THRESHOLD", 0.25),
			RemoteVADThreshold: envOrDefaultFloat("REALTIME_REMOTE_VAD_THRESHOLD", 0.12),
			ConnectTimeout:     envOrDefaultDuration("REALTIME_CONNECT_TIMEOUT", 15*time.Second),
			InPersonMode:       envOrDefaultBool("IN_PERSON_MODE", false),
			RemoteSourceID:     os.Getenv("REMOTE_SOURCE_ID"),
		},
		Audio: AudioConfig{
			Enabled:       envOrDefaultBool("AUDIO_CAPTURE_ENABLED", false),
			DeviceID:      envOrDefault("AUDIO_DEVICE_ID", "default"),
			SampleRate:    envOrDefaultInt("AUDIO_SAMPLE_RATE_HZ", 24000),
			FrameInterval: envOrDefaultDuration("AUDIO_FRAME_INTERVAL", 100*time.Millisecond),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultList("KAFKA_BROKERS", nil),
			TopicPartial: envOrDefault("KAFKA_TOPIC_PARTIAL", "meeting.transcript.partial"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "meeting.transcript.final"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Ingress: IngressConfig{
			Addr: envOrDefault("INGRESS_ADDR", ":8080"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			return parsed
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
