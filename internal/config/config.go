// Package config loads SUP gate configuration from a YAML file and overlays
// SUP_*-prefixed environment variables so thresholds can be tuned without a
// redeploy.
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the full gate configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Policy PolicyConfig `yaml:"policy"`
	Quota  QuotaConfig  `yaml:"quota"`
	Proof  ProofConfig  `yaml:"proof"`
	Audit  AuditConfig  `yaml:"audit"`
	Abuse  AbuseConfig  `yaml:"abuse"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address, e.g. ":8080"
}

// PolicyConfig carries the policy version, per-endpoint gate modes and the
// decision thresholds.
type PolicyConfig struct {
	Version string `yaml:"version"`

	// Gates maps endpoint keys to off|on|strict; unknown endpoints use
	// the "default" entry (on when absent).
	Gates map[string]string `yaml:"gates"`

	CLSMax            float64 `yaml:"cls_max"`
	LCPMsMax          int     `yaml:"lcp_ms_max"`
	ClaimsBlockStrict int     `yaml:"claims_block_strict"`
	RequireA11y       bool    `yaml:"require_a11y"`
	BlockPIIStrict    bool    `yaml:"block_pii_strict"`
	LQRMin            float64 `yaml:"lqr_min"`
}

// QuotaConfig controls the sliding-window ledger.
type QuotaConfig struct {
	Window       time.Duration `yaml:"window"`
	MaxBurst     int           `yaml:"max_burst"`
	Decay        time.Duration `yaml:"decay"`
	SweepEvery   int           `yaml:"sweep_every"`
	PrewarmToken string        `yaml:"prewarm_token"`
}

type ProofConfig struct {
	Secret string `yaml:"secret"`
}

type AuditConfig struct {
	Path      string `yaml:"path"`
	QueueSize int    `yaml:"queue_size"`
	Workers   int    `yaml:"workers"`
}

// AbuseConfig shapes the ledger-bypassing intake route.
type AbuseConfig struct {
	LogDir       string  `yaml:"log_dir"`
	IntakePerSec float64 `yaml:"intake_per_sec"`
	IntakeBurst  int     `yaml:"intake_burst"`
}

// Load reads configuration from a YAML file. A missing file yields the
// default config. Environment variables (SUP_ prefix) win over the file.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Policy: PolicyConfig{
			Version:           "2.0.0",
			Gates:             map[string]string{},
			CLSMax:            0.25,
			LCPMsMax:          4000,
			ClaimsBlockStrict: 1,
			RequireA11y:       false,
			BlockPIIStrict:    true,
			LQRMin:            70,
		},
		Quota: QuotaConfig{
			Window:     time.Minute,
			MaxBurst:   120,
			Decay:      5 * time.Minute,
			SweepEvery: 1000,
		},
		Proof: ProofConfig{Secret: "dev-only-not-for-production"},
		Audit: AuditConfig{
			Path:      ".cache/sup.audit.jsonl",
			QueueSize: 1000,
			Workers:   1,
		},
		Abuse: AbuseConfig{
			LogDir:       ".cache/abuse",
			IntakePerSec: 2,
			IntakeBurst:  5,
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Policy.Version == "" {
		cfg.Policy.Version = "2.0.0"
	}
	if cfg.Policy.Gates == nil {
		cfg.Policy.Gates = map[string]string{}
	}
	if cfg.Policy.CLSMax <= 0 {
		cfg.Policy.CLSMax = 0.25
	}
	if cfg.Policy.LCPMsMax <= 0 {
		cfg.Policy.LCPMsMax = 4000
	}
	if cfg.Policy.ClaimsBlockStrict <= 0 {
		cfg.Policy.ClaimsBlockStrict = 1
	}
	if cfg.Policy.LQRMin <= 0 {
		cfg.Policy.LQRMin = 70
	}
	if cfg.Quota.Window <= 0 {
		cfg.Quota.Window = time.Minute
	}
	if cfg.Quota.MaxBurst <= 0 {
		cfg.Quota.MaxBurst = 120
	}
	if cfg.Quota.Decay <= 0 {
		cfg.Quota.Decay = 5 * time.Minute
	}
	if cfg.Quota.SweepEvery <= 0 {
		cfg.Quota.SweepEvery = 1000
	}
	if cfg.Proof.Secret == "" {
		cfg.Proof.Secret = "dev-only-not-for-production"
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = ".cache/sup.audit.jsonl"
	}
	if cfg.Audit.QueueSize <= 0 {
		cfg.Audit.QueueSize = 1000
	}
	if cfg.Audit.Workers <= 0 {
		cfg.Audit.Workers = 1
	}
	if cfg.Abuse.LogDir == "" {
		cfg.Abuse.LogDir = ".cache/abuse"
	}
	if cfg.Abuse.IntakePerSec <= 0 {
		cfg.Abuse.IntakePerSec = 2
	}
	if cfg.Abuse.IntakeBurst <= 0 {
		cfg.Abuse.IntakeBurst = 5
	}
}

// applyEnv overlays SUP_* environment variables onto the loaded config.
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("SUP")

	bindings := []string{
		"addr", "policy_version", "hmac_secret",
		"max_cls", "max_lcp_ms", "claims_block_strict",
		"require_a11y", "block_pii_strict", "lqr_min",
		"window_ms", "max_rpm", "decay_ms", "sweep_every",
		"prewarm_token", "audit_path",
	}
	for _, b := range bindings {
		_ = v.BindEnv(b)
	}

	if s := v.GetString("addr"); s != "" {
		cfg.Server.Addr = s
	}
	if s := v.GetString("policy_version"); s != "" {
		cfg.Policy.Version = s
	}
	if s := v.GetString("hmac_secret"); s != "" {
		cfg.Proof.Secret = s
	}
	if n := v.GetFloat64("max_cls"); n > 0 {
		cfg.Policy.CLSMax = n
	}
	if n := v.GetInt("max_lcp_ms"); n > 0 {
		cfg.Policy.LCPMsMax = n
	}
	if n := v.GetInt("claims_block_strict"); n > 0 {
		cfg.Policy.ClaimsBlockStrict = n
	}
	if s := v.GetString("require_a11y"); s != "" {
		cfg.Policy.RequireA11y = v.GetBool("require_a11y")
	}
	if s := v.GetString("block_pii_strict"); s != "" {
		cfg.Policy.BlockPIIStrict = v.GetBool("block_pii_strict")
	}
	if n := v.GetFloat64("lqr_min"); n > 0 {
		cfg.Policy.LQRMin = n
	}
	if n := v.GetInt("window_ms"); n > 0 {
		cfg.Quota.Window = time.Duration(n) * time.Millisecond
	}
	if n := v.GetInt("max_rpm"); n > 0 {
		cfg.Quota.MaxBurst = n
	}
	if n := v.GetInt("decay_ms"); n > 0 {
		cfg.Quota.Decay = time.Duration(n) * time.Millisecond
	}
	if n := v.GetInt("sweep_every"); n > 0 {
		cfg.Quota.SweepEvery = n
	}
	if s := v.GetString("prewarm_token"); s != "" {
		cfg.Quota.PrewarmToken = s
	}
	if s := v.GetString("audit_path"); s != "" {
		cfg.Audit.Path = s
	}
}
