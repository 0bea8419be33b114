// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Ethereum  EthereumConfig  `yaml:"ethereum"`
	Starkbank StarkbankConfig `yaml:"starkbank"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost" validate:"required"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"cipay" validate:"required"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// EthereumConfig contains chain client and relay contract settings
type EthereumConfig struct {
	RPCURL string `yaml:"rpc_url" validate:"required,url"`
	// ChainID is the EVM chain the relay contract lives on.
	ChainID int64 `yaml:"chain_id" validate:"required"`
	// MetaTxProxy is the meta transaction relay contract address.
	MetaTxProxy string `yaml:"meta_tx_proxy" validate:"required,eth_addr"`
	// Wallet is the custodial wallet all token payments must be sent to.
	Wallet string `yaml:"wallet" validate:"required,eth_addr"`
	// RelayerPrivateKey signs and pays gas for relayed meta transactions.
	RelayerPrivateKey string `yaml:"relayer_private_key" validate:"required"`
	// PollPeriod is the sleep between scan iterations.
	PollPeriod time.Duration `yaml:"poll_period" default:"10s"`
	// ScanWindow bounds how many blocks one iteration may cover.
	ScanWindow uint64 `yaml:"scan_window" default:"1000"`
	// Tokens is the allow-list of accepted payment tokens.
	Tokens []TokenConfig `yaml:"tokens" validate:"required,min=1,dive"`
}

// TokenConfig describes one accepted ERC20 token and its exchange rate.
type TokenConfig struct {
	Address string `yaml:"address" validate:"required,eth_addr"`
	// Rate is fiat minor units per whole token, human readable ("0.5" means
	// one token buys half a cent). Normalized to 18-decimal fixed point at
	// load time by pkg/rates.
	Rate     string `yaml:"rate" validate:"required"`
	Decimals int32  `yaml:"decimals" default:"18"`
	Symbol   string `yaml:"symbol" validate:"required"`
}

// StarkbankConfig contains banking provider credentials and webhook settings
type StarkbankConfig struct {
	APIURL      string `yaml:"api_url" default:"https://sandbox.api.starkbank.com" validate:"url"`
	Environment string `yaml:"environment" default:"sandbox" validate:"oneof=sandbox production"`
	ProjectID   string `yaml:"project_id" validate:"required"`
	// PrivateKey is the SEC1/PKCS8 PEM used to sign API access tokens.
	PrivateKey string `yaml:"private_key" validate:"required"`
	// WebhookURL is this service's public webhook endpoint, registered with
	// the provider on startup.
	WebhookURL string `yaml:"webhook_url"`
}

// PaymentsConfig contains fee and payout limit settings
type PaymentsConfig struct {
	// BaseFeeCents is the flat service fee in fiat minor units.
	BaseFeeCents int64 `yaml:"base_fee_cents" default:"100"`
	// FeeBps is the proportional service fee in basis points.
	FeeBps int64 `yaml:"fee_bps" default:"50"`
	// PaymentLimitCents is the per-payout ceiling in fiat minor units.
	PaymentLimitCents int64 `yaml:"payment_limit_cents" default:"100000"`
	// Description is attached to payouts whose brcode carries none.
	Description string `yaml:"description" default:"Cipay payment"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
