package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App    AppConfig
	Chain  ChainConfig
	Pinata PinataConfig
	Media  MediaConfig
	Redis  RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Chain.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOUNDLEASE_APP_ENV" required:"true"`
	Port         string `envconfig:"SOUNDLEASE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"SOUNDLEASE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"SOUNDLEASE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SOUNDLEASE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ChainConfig wires the RPC endpoint, the deployed license contract, and the
// issuer key the API signs transactions with.
type ChainConfig struct {
	RPCURL          string        `envconfig:"SOUNDLEASE_CHAIN_RPC_URL" required:"true"`
	ContractAddress string        `envconfig:"SOUNDLEASE_CHAIN_CONTRACT_ADDRESS" required:"true"`
	IssuerKey       string        `envconfig:"SOUNDLEASE_CHAIN_ISSUER_KEY"`
	ChainID         int64         `envconfig:"SOUNDLEASE_CHAIN_ID" default:"1"`
	LookbackBlocks  uint64        `envconfig:"SOUNDLEASE_CHAIN_LOOKBACK_BLOCKS" default:"10000"`
	ConfirmTimeout  time.Duration `envconfig:"SOUNDLEASE_CHAIN_CONFIRM_TIMEOUT" default:"2m"`
}

func (c ChainConfig) validate() error {
	if strings.TrimSpace(c.ContractAddress) == "" {
		return fmt.Errorf("%s is required", EnvChainContractAddress)
	}
	if c.LookbackBlocks == 0 {
		return fmt.Errorf("%s must be positive", EnvChainLookbackBlocks)
	}
	return nil
}

type PinataConfig struct {
	BaseURL    string        `envconfig:"SOUNDLEASE_PINATA_BASE_URL" default:"https://api.pinata.cloud"`
	GatewayURL string        `envconfig:"SOUNDLEASE_PINATA_GATEWAY_URL" default:"https://gateway.pinata.cloud/ipfs"`
	JWT        string        `envconfig:"SOUNDLEASE_PINATA_JWT" required:"true"`
	Timeout    time.Duration `envconfig:"SOUNDLEASE_PINATA_TIMEOUT" default:"30s"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"SOUNDLEASE_MAX_UPLOAD_MB" default:"100"`
}

// RedisConfig backs the optional metadata document cache; the cache is
// disabled when URL and Address are both empty.
type RedisConfig struct {
	URL          string        `envconfig:"SOUNDLEASE_REDIS_URL"`
	Address      string        `envconfig:"SOUNDLEASE_REDIS_ADDR"`
	Password     string        `envconfig:"SOUNDLEASE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOUNDLEASE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOUNDLEASE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOUNDLEASE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOUNDLEASE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOUNDLEASE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOUNDLEASE_REDIS_WRITE_TIMEOUT" default:"5s"`
	MetadataTTL  time.Duration `envconfig:"SOUNDLEASE_REDIS_METADATA_TTL" default:"24h"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}
