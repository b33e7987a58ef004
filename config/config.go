package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Configuration is the full set of tunables for this module's components.
type Configuration struct {
	Rate    RateConfig    `toml:"rate"`
	Circuit CircuitConfig `toml:"circuit"`
	Retry   RetryConfig   `toml:"retry"`
	Request RequestConfig `toml:"request"`
	Merger  MergerConfig  `toml:"merger"`
	Dedup   DedupConfig   `toml:"dedup"`
	Tx      TxConfig      `toml:"tx"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Session SessionConfig `toml:"session"`
	Events  EventsConfig  `toml:"events"`
	Audit   AuditConfig   `toml:"audit"`
	Remote  RemoteConfig  `toml:"remote"`
}

type RateConfig struct {
	Burst           int     `toml:"burst"`
	Sustained       float64 `toml:"sustained"`
	RefillPerSecond float64 `toml:"refillPerSecond"`
}

type CircuitConfig struct {
	FailureThreshold int `toml:"failureThreshold"`
	SuccessThreshold int `toml:"successThreshold"`
	TimeoutMs        int `toml:"timeoutMs"`
}

type RetryConfig struct {
	MaxAttempts int  `toml:"maxAttempts"`
	BaseDelayMs int  `toml:"baseDelayMs"`
	MaxDelayMs  int  `toml:"maxDelayMs"`
	Jitter      bool `toml:"jitter"`
}

type RequestConfig struct {
	TimeoutMs  int `toml:"timeoutMs"`
	DeadlineMs int `toml:"deadlineMs"`
}

type MergerConfig struct {
	Enabled       bool `toml:"enabled"`
	WindowMs      int  `toml:"windowMs"`
	MaxGroupSize  int  `toml:"maxGroupSize"`
	MergeAdjacent bool `toml:"mergeAdjacent"`
}

type DedupConfig struct {
	TTLMs      int `toml:"ttlMs"`
	MaxEntries int `toml:"maxEntries"`
}

type TxConfig struct {
	MaxOperations int  `toml:"maxOperations"`
	TimeoutMs     int  `toml:"timeoutMs"`
	MaxConcurrent int  `toml:"maxConcurrent"`
	AutoSnapshot  bool `toml:"autoSnapshot"`
	AutoRollback  bool `toml:"autoRollback"`
}

type SnapshotConfig struct {
	MaxFullSizeBytes int64 `toml:"maxFullSizeBytes"`
	TTLMs            int   `toml:"ttlMs"`
}

type SessionConfig struct {
	MaxPerUser    int `toml:"maxPerUser"`
	DefaultTTLMs  int `toml:"defaultTtlMs"`
}

type EventsConfig struct {
	MaxEntries int `toml:"maxEntries"`
	TTLMs      int `toml:"ttlMs"`
}

type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	SinkURL string `toml:"sinkUrl"`
}

// RemoteConfig describes the remote spreadsheet API endpoint. APIKeyRef
// holds a secret reference ("sheetref:<provider>:<ref>") or a
// "${VAR}"-style environment placeholder rather than a raw credential;
// resolve it with a secret.Resolver before building an HTTPClientConfig.
type RemoteConfig struct {
	BaseURL   string `toml:"baseUrl"`
	UserAgent string `toml:"userAgent"`
	APIKeyRef string `toml:"apiKeyRef"`
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Default returns a Configuration with every component default applied.
func Default() Configuration {
	return Configuration{
		Rate:    RateConfig{Burst: 20, Sustained: 10, RefillPerSecond: 10},
		Circuit: CircuitConfig{FailureThreshold: 5, SuccessThreshold: 2, TimeoutMs: 30_000},
		Retry:   RetryConfig{MaxAttempts: 3, BaseDelayMs: 100, MaxDelayMs: 30_000, Jitter: true},
		Request: RequestConfig{TimeoutMs: 30_000, DeadlineMs: 60_000},
		Merger:  MergerConfig{Enabled: true, WindowMs: 50, MaxGroupSize: 64, MergeAdjacent: true},
		Dedup:   DedupConfig{TTLMs: 2_000, MaxEntries: 256},
		Tx:      TxConfig{MaxOperations: 100, TimeoutMs: 300_000, MaxConcurrent: 10, AutoSnapshot: true, AutoRollback: true},
		Snapshot: SnapshotConfig{MaxFullSizeBytes: 50 * 1024 * 1024, TTLMs: 3_600_000},
		Session: SessionConfig{MaxPerUser: 10, DefaultTTLMs: 3_600_000},
		Events:  EventsConfig{MaxEntries: 5_000, TTLMs: 300_000},
		Audit:   AuditConfig{Enabled: true},
		Remote:  RemoteConfig{UserAgent: "sheetcore/1.0"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins). A
// missing or unparsable file is not an error — the defaults (and any env
// overrides) still apply, matching the layered fallback the rest of this
// module's config surface uses.
func Load(path string) Configuration {
	cfg := Default()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			_ = toml.Unmarshal(data, &cfg)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg
}

func applyEnvOverrides(cfg *Configuration) {
	if v, ok := envInt("SHEETCORE_RATE_BURST"); ok {
		cfg.Rate.Burst = v
	}
	if v, ok := envFloat("SHEETCORE_RATE_SUSTAINED"); ok {
		cfg.Rate.Sustained = v
	}
	if v, ok := envFloat("SHEETCORE_RATE_REFILL_PER_SECOND"); ok {
		cfg.Rate.RefillPerSecond = v
	}
	if v, ok := envInt("SHEETCORE_CIRCUIT_FAILURE_THRESHOLD"); ok {
		cfg.Circuit.FailureThreshold = v
	}
	if v, ok := envInt("SHEETCORE_CIRCUIT_SUCCESS_THRESHOLD"); ok {
		cfg.Circuit.SuccessThreshold = v
	}
	if v, ok := envInt("SHEETCORE_RETRY_MAX_ATTEMPTS"); ok {
		cfg.Retry.MaxAttempts = v
	}
	if v, ok := envInt("SHEETCORE_MERGER_WINDOW_MS"); ok {
		cfg.Merger.WindowMs = v
	}
	if v, ok := envBool("SHEETCORE_MERGER_ENABLED"); ok {
		cfg.Merger.Enabled = v
	}
	if v, ok := envInt("SHEETCORE_TX_MAX_CONCURRENT"); ok {
		cfg.Tx.MaxConcurrent = v
	}
	if v, ok := envBool("SHEETCORE_TX_AUTO_ROLLBACK"); ok {
		cfg.Tx.AutoRollback = v
	}
	if v, ok := envBool("SHEETCORE_AUDIT_ENABLED"); ok {
		cfg.Audit.Enabled = v
	}
	if v := os.Getenv("SHEETCORE_AUDIT_SINK_URL"); v != "" {
		cfg.Audit.SinkURL = v
	}
	if v := os.Getenv("SHEETCORE_REMOTE_BASE_URL"); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := os.Getenv("SHEETCORE_REMOTE_API_KEY_REF"); v != "" {
		cfg.Remote.APIKeyRef = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
