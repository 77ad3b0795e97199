package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	envVars := []string{
		"SERVICE_PRINCIPAL", "OPENAI_API_KEY", "REALTIME_MODEL", "REALTIME_ENDPOINT",
		"REALTIME_LOCAL_VAD_THRESHOLD", "REALTIME_REMOTE_VAD_THRESHOLD",
		"REALTIME_CONNECT_TIMEOUT", "IN_PERSON_MODE", "REMOTE_SOURCE_ID",
		"AUDIO_CAPTURE_ENABLED", "AUDIO_DEVICE_ID", "AUDIO_SAMPLE_RATE_HZ", "AUDIO_FRAME_INTERVAL",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_PARTIAL", "KAFKA_TOPIC_FINAL",
		"KAFKA_PRINCIPAL", "INGRESS_ADDR", "LOG_LEVEL", "METRICS_ADDR",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.Service.Principal != "meeting-assistant" {
		t.Errorf("expected default principal 'meeting-assistant', got %s", cfg.Service.Principal)
	}

	if cfg.Realtime.Model != "gpt-4o-realtime-preview" {
		t.Errorf("expected default model 'gpt-4o-realtime-preview', got %s", cfg.Realtime.Model)
	}
	if cfg.Realtime.Endpoint != "wss://api.openai.com/v1/realtime" {
		t.Errorf("expected default endpoint, got %s", cfg.Realtime.Endpoint)
	}
	if cfg.Realtime.LocalVADThreshold != 0.25 {
		t.Errorf("expected default local VAD threshold 0.25, got %v", cfg.Realtime.LocalVADThreshold)
	}
	if cfg.Realtime.RemoteVADThreshold != 0.12 {
		t.Errorf("expected default remote VAD threshold 0.12, got %v", cfg.Realtime.RemoteVADThreshold)
	}
	if cfg.Realtime.ConnectTimeout != 15*time.Second {
		t.Errorf("expected default connect timeout 15s, got %v", cfg.Realtime.ConnectTimeout)
	}
	if cfg.Realtime.InPersonMode {
		t.Error("expected in-person mode off by default")
	}

	if cfg.Audio.Enabled {
		t.Error("expected local capture off by default")
	}
	if cfg.Audio.DeviceID != "default" {
		t.Errorf("expected default device id 'default', got %s", cfg.Audio.DeviceID)
	}
	if cfg.Audio.SampleRate != 24000 {
		t.Errorf("expected default sample rate 24000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.FrameInterval != 100*time.Millisecond {
		t.Errorf("expected default frame interval 100ms, got %v", cfg.Audio.FrameInterval)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicPartial != "meeting.transcript.partial" {
		t.Errorf("expected default partial topic, got %s", cfg.Kafka.TopicPartial)
	}
	if cfg.Kafka.TopicFinal != "meeting.transcript.final" {
		t.Errorf("expected default final topic, got %s", cfg.Kafka.TopicFinal)
	}

	if cfg.Ingress.Addr != ":8080" {
		t.Errorf("expected default ingress addr ':8080', got %s", cfg.Ingress.Addr)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsAddr != ":9090" {
		t.Errorf("expected default metrics addr ':9090', got %s", cfg.Observability.MetricsAddr)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("OPENAI_API_KEY", "sk-test")
	os.Setenv("REALTIME_MODEL", "gpt-4o-mini-realtime-preview")
	os.Setenv("REALTIME_LOCAL_VAD_THRESHOLD", "0.3")
	os.Setenv("REALTIME_REMOTE_VAD_THRESHOLD", "0.1")
	os.Setenv("REALTIME_CONNECT_TIMEOUT", "30s")
	os.Setenv("IN_PERSON_MODE", "true")
	os.Setenv("REMOTE_SOURCE_ID", "BlackHole 2ch")
	os.Setenv("AUDIO_SAMPLE_RATE_HZ", "48000")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	os.Setenv("INGRESS_ADDR", ":7070")

	defer func() {
		os.Unsetenv("SERVICE_PRINCIPAL")
		os.Unsetenv("OPENAI_API_KEY")
		os.Unsetenv("REALTIME_MODEL")
		os.Unsetenv("REALTIME_LOCAL_VAD_THRESHOLD")
		os.Unsetenv("REALTIME_REMOTE_VAD_THRESHOLD")
		os.Unsetenv("REALTIME_CONNECT_TIMEOUT")
		os.Unsetenv("IN_PERSON_MODE")
		os.Unsetenv("REMOTE_SOURCE_ID")
		os.Unsetenv("AUDIO_SAMPLE_RATE_HZ")
		os.Unsetenv("KAFKA_ENABLED")
		os.Unsetenv("KAFKA_BROKERS")
		os.Unsetenv("INGRESS_ADDR")
	}()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Realtime.APIKey != "sk-test" {
		t.Errorf("expected API key 'sk-test', got %s", cfg.Realtime.APIKey)
	}
	if cfg.Realtime.Model != "gpt-4o-mini-realtime-preview" {
		t.Errorf("expected custom model, got %s", cfg.Realtime.Model)
	}
	if cfg.Realtime.LocalVADThreshold != 0.3 {
		t.Errorf("expected local VAD threshold 0.3, got %v", cfg.Realtime.LocalVADThreshold)
	}
	if cfg.Realtime.RemoteVADThreshold != 0.1 {
		t.Errorf("expected remote VAD threshold 0.1, got %v", cfg.Realtime.RemoteVADThreshold)
	}
	if cfg.Realtime.ConnectTimeout != 30*time.Second {
		t.Errorf("expected connect timeout 30s, got %v", cfg.Realtime.ConnectTimeout)
	}
	if !cfg.Realtime.InPersonMode {
		t.Error("expected in-person mode on")
	}
	if cfg.Realtime.RemoteSourceID != "BlackHole 2ch" {
		t.Errorf("expected remote source id 'BlackHole 2ch', got %s", cfg.Realtime.RemoteSourceID)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("expected sample rate 48000, got %d", cfg.Audio.SampleRate)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker1:9092" || cfg.Kafka.Brokers[1] != "broker2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Ingress.Addr != ":7070" {
		t.Errorf("expected ingress addr ':7070', got %s", cfg.Ingress.Addr)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	os.Setenv("REALTIME_LOCAL_VAD_THRESHOLD", "not-a-number")
	os.Setenv("REALTIME_CONNECT_TIMEOUT", "invalid")
	os.Setenv("IN_PERSON_MODE", "invalid")
	os.Setenv("AUDIO_SAMPLE_RATE_HZ", "invalid")

	defer func() {
		os.Unsetenv("REALTIME_LOCAL_VAD_THRESHOLD")
		os.Unsetenv("REALTIME_CONNECT_TIMEOUT")
		os.Unsetenv("IN_PERSON_MODE")
		os.Unsetenv("AUDIO_SAMPLE_RATE_HZ")
	}()

	cfg := Load()

	if cfg.Realtime.LocalVADThreshold != 0.25 {
		t.Errorf("expected default threshold on invalid input, got %v", cfg.Realtime.LocalVADThreshold)
	}
	if cfg.Realtime.ConnectTimeout != 15*time.Second {
		t.Errorf("expected default connect timeout on invalid input, got %v", cfg.Realtime.ConnectTimeout)
	}
	if cfg.Realtime.InPersonMode {
		t.Error("expected default in-person mode on invalid input")
	}
	if cfg.Audio.SampleRate != 24000 {
		t.Errorf("expected default sample rate on invalid input, got %d", cfg.Audio.SampleRate)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Unsetenv("KAFKA_PRINCIPAL")

	defer os.Unsetenv("SERVICE_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestEnvOrDefaultList(t *testing.T) {
	key := "TEST_LIST_VAR"
	defer os.Unsetenv(key)

	os.Unsetenv(key)
	if got := envOrDefaultList(key, []string{"a"}); len(got) != 1 || got[0] != "a" {
		t.Errorf("expected default list, got %v", got)
	}

	os.Setenv(key, " x , ,y")
	got := envOrDefaultList(key, nil)
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("expected trimmed non-empty entries, got %v", got)
	}
}
