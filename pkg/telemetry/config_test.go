// ABOUTME: Tests for telemetry configuration defaults, validation, and environment overrides
// ABOUTME: Covers valid and invalid values for every validated field

package telemetry

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServiceName != "blkview" {
		t.Errorf("Expected service name blkview, got %s", cfg.ServiceName)
	}
	if cfg.Enabled {
		t.Error("Expected telemetry to be disabled by default")
	}
	if !cfg.HasExporter(ExporterStdout) {
		t.Error("Expected stdout exporter by default")
	}
	if cfg.HasExporter(ExporterOTLP) {
		t.Error("Expected no otlp exporter by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"empty service name", func(c *Config) { c.ServiceName = "" }, "service_name"},
		{"empty service version", func(c *Config) { c.ServiceVersion = "" }, "service_version"},
		{"negative sample rate", func(c *Config) { c.SampleRate = -0.1 }, "sample_rate"},
		{"sample rate above one", func(c *Config) { c.SampleRate = 1.1 }, "sample_rate"},
		{"zero export timeout", func(c *Config) { c.ExportTimeout = 0 }, "export_timeout"},
		{"zero batch timeout", func(c *Config) { c.BatchTimeout = 0 }, "batch_timeout"},
		{"zero queue size", func(c *Config) { c.MaxQueueSize = 0 }, "max_queue_size"},
		{"zero batch size", func(c *Config) { c.MaxExportBatchSize = 0 }, "max_export_batch_size"},
		{"unknown exporter", func(c *Config) { c.Exporters = []string{"prometheus"} }, "invalid exporter"},
		{"otlp without endpoint", func(c *Config) {
			c.Exporters = []string{ExporterOTLP}
			c.OTLPEndpoint = ""
		}, "otlp_endpoint"},
		{"otlp with endpoint", func(c *Config) { c.Exporters = []string{ExporterOTLP} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigLoadFromEnv(t *testing.T) {
	t.Setenv("BLKVIEW_TELEMETRY_ENABLED", "true")
	t.Setenv("BLKVIEW_TELEMETRY_SERVICE_NAME", "blkview-test")
	t.Setenv("BLKVIEW_TELEMETRY_EXPORTERS", "stdout, otlp")
	t.Setenv("BLKVIEW_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("BLKVIEW_TELEMETRY_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("BLKVIEW_TELEMETRY_BATCH_TIMEOUT", "250ms")
	t.Setenv("BLKVIEW_TELEMETRY_MAX_QUEUE_SIZE", "not-a-number")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	if !cfg.Enabled {
		t.Error("Expected telemetry to be enabled")
	}
	if cfg.ServiceName != "blkview-test" {
		t.Errorf("Expected service name blkview-test, got %s", cfg.ServiceName)
	}
	if !cfg.HasExporter(ExporterStdout) || !cfg.HasExporter(ExporterOTLP) {
		t.Errorf("Expected both exporters, got %v", cfg.Exporters)
	}
	if cfg.SampleRate != 0.5 {
		t.Errorf("Expected sample rate 0.5, got %f", cfg.SampleRate)
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Errorf("Expected endpoint collector:4317, got %s", cfg.OTLPEndpoint)
	}
	if cfg.BatchTimeout != 250*time.Millisecond {
		t.Errorf("Expected batch timeout 250ms, got %s", cfg.BatchTimeout)
	}
	if cfg.MaxQueueSize != DefaultConfig().MaxQueueSize {
		t.Errorf("Expected unparsable queue size to keep default, got %d", cfg.MaxQueueSize)
	}
}
