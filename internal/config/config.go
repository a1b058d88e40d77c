package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации движка.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Policy    PolicyConfig    `yaml:"policy"`
	Debug     DebugConfig     `yaml:"debug"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// WorldConfig параметры генерации и стриминга чанков.
type WorldConfig struct {
	Seed         int64 `yaml:"seed"`
	RadiusChunks int   `yaml:"radius_chunks"`
	Workers      int   `yaml:"workers"`
}

// PolicyConfig дефолтная политика модификации вокселей.
// Внешний слой ввода может менять её в рантайме.
type PolicyConfig struct {
	CanPlace   bool `yaml:"can_place"`
	CanDestroy bool `yaml:"can_destroy"`
	// []int, а не []uint8: yaml.v3 читает []byte как base64-скаляр.
	AllowedTypes   []int   `yaml:"allowed_types"`
	CurrentType    int     `yaml:"current_type"`
	MinRange       float64 `yaml:"min_range"`
	MaxRange       float64 `yaml:"max_range"`
	CooldownMs     int     `yaml:"cooldown_ms"`
	BatchSize      int     `yaml:"batch_size"`
	BatchDelayMs   int     `yaml:"batch_delay_ms"`
	RebuildDelayMs int     `yaml:"rebuild_delay_ms"`
}

// DebugConfig порт отладочного HTTP (метрики, статистика).
type DebugConfig struct {
	Port int `yaml:"port"`
}

// TelemetryConfig настройки OTLP-трассировки.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
}

// GetSeed возвращает сид с fallback значением
func (w *WorldConfig) GetSeed() int64 {
	if w.Seed != 0 {
		return w.Seed
	}
	if envVal := os.Getenv("VOXEL_SEED"); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			return seed
		}
	}
	return 1337
}

// GetRadius возвращает радиус стриминга в чанках
func (w *WorldConfig) GetRadius() int {
	return intWithEnvFallback(w.RadiusChunks, "VOXEL_RADIUS", 4)
}

// GetWorkers возвращает размер пула генерации
func (w *WorldConfig) GetWorkers() int {
	return intWithEnvFallback(w.Workers, "VOXEL_WORKERS", 4)
}

// GetPort возвращает порт отладочного HTTP с поддержкой fallback значений
func (d *DebugConfig) GetPort() int {
	return intWithEnvFallback(d.Port, "VOXEL_DEBUG_PORT", 2112)
}

// Cooldown возвращает кулдаун модификаций как Duration
func (p *PolicyConfig) Cooldown() time.Duration {
	return time.Duration(intWithEnvFallback(p.CooldownMs, "", 150)) * time.Millisecond
}

// BatchDelay возвращает паузу между порциями батча
func (p *PolicyConfig) BatchDelay() time.Duration {
	return time.Duration(intWithEnvFallback(p.BatchDelayMs, "", 10)) * time.Millisecond
}

// RebuildDelay возвращает задержку дебаунса перед перестроением меша
func (p *PolicyConfig) RebuildDelay() time.Duration {
	return time.Duration(intWithEnvFallback(p.RebuildDelayMs, "", 50)) * time.Millisecond
}

// intWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func intWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	if configVal > 0 {
		return configVal
	}

	if envVar != "" {
		if envVal := os.Getenv(envVar); envVal != "" {
			if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
				return v
			}
		}
	}

	return defaultVal
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV VOXEL_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
