// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vatanpay/remit/internal/asset"
)

// AssetConfig declares one currency the flows can operate on.
type AssetConfig struct {
	Code   string `mapstructure:"code"`
	Issuer string `mapstructure:"issuer"`
}

// FlowConfig is the per-flow protection configuration.
type FlowConfig struct {
	// SlippagePercent is the tolerated output deviation, e.g. 2.0.
	SlippagePercent float64 `mapstructure:"slippage_percent"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
}

type Config struct {
	HorizonURL        string        `mapstructure:"horizon_url"`
	NetworkPassphrase string        `mapstructure:"network_passphrase"`
	Assets            []AssetConfig `mapstructure:"assets"`
	Send              FlowConfig    `mapstructure:"send"`
	Swap              FlowConfig    `mapstructure:"swap"`
	Deposit           FlowConfig    `mapstructure:"deposit"`
	PlatformFeePct    float64       `mapstructure:"platform_fee_percent"`
	FiatPerToken      float64       `mapstructure:"fiat_per_token"`
	TokenPerXLM       float64       `mapstructure:"token_per_xlm"`
	BalancePollSecs   int           `mapstructure:"balance_poll_seconds"`
	HistoryPageSize   int           `mapstructure:"history_page_size"`
	DebugLogging      bool          `mapstructure:"debug_logging"`
	LogFile           string        `mapstructure:"log_file"`
	// PostgresURL enables the transfer record store when set.
	PostgresURL string `mapstructure:"postgres_url"`
	// SignerSeed is only read from the environment, never from the file.
	SignerSeed string `mapstructure:"-"`
}

const (
	DefaultHorizonURL        = "https://horizon-testnet.stellar.org"
	DefaultNetworkPassphrase = "Test SDF Network ; September 2015"
	DefaultSendSlippagePct   = 2.0
	DefaultSwapSlippagePct   = 10.0
	DefaultSendTimeoutSecs   = 180
	DefaultSwapTimeoutSecs   = 300
	DefaultPlatformFeePct    = 0.5
	DefaultFiatPerToken      = 3.67
	DefaultTokenPerXLM       = 0.1
	DefaultBalancePollSecs   = 10
	DefaultHistoryPageSize   = 20
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"horizon_url":           DefaultHorizonURL,
		"network_passphrase":    DefaultNetworkPassphrase,
		"send.slippage_percent": DefaultSendSlippagePct,
		"send.timeout_seconds":  DefaultSendTimeoutSecs,
		"swap.slippage_percent": DefaultSwapSlippagePct,
		"swap.timeout_seconds":  DefaultSwapTimeoutSecs,
		// Deposits ride the same exchange as swaps.
		"deposit.slippage_percent": DefaultSwapSlippagePct,
		"deposit.timeout_seconds":  DefaultSwapTimeoutSecs,
		"platform_fee_percent":     DefaultPlatformFeePct,
		"fiat_per_token":           DefaultFiatPerToken,
		"token_per_xlm":            DefaultTokenPerXLM,
		"balance_poll_seconds":     DefaultBalancePollSecs,
		"history_page_size":        DefaultHistoryPageSize,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.HorizonURL == "" {
		return errors.New("missing horizon_url in configuration")
	}
	if err := validateURL(cfg.HorizonURL, "http"); err != nil {
		return errors.New("invalid horizon URL protocol")
	}
	if cfg.NetworkPassphrase == "" {
		return errors.New("missing network_passphrase in configuration")
	}
	for _, a := range cfg.Assets {
		if _, err := asset.New(a.Code, a.Issuer); err != nil {
			return fmt.Errorf("invalid asset %s: %w", a.Code, err)
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	for name, flow := range map[string]FlowConfig{"send": cfg.Send, "swap": cfg.Swap, "deposit": cfg.Deposit} {
		if flow.SlippagePercent <= 0 || flow.SlippagePercent >= 100 {
			return fmt.Errorf("invalid %s slippage_percent", name)
		}
		if flow.TimeoutSeconds <= 0 {
			return fmt.Errorf("invalid %s timeout_seconds", name)
		}
	}
	if cfg.PlatformFeePct < 0 || cfg.PlatformFeePct >= 100 {
		return errors.New("invalid platform_fee_percent")
	}
	if cfg.FiatPerToken <= 0 {
		return errors.New("invalid fiat_per_token")
	}
	if cfg.TokenPerXLM <= 0 {
		return errors.New("invalid token_per_xlm")
	}
	if cfg.BalancePollSecs <= 0 {
		return errors.New("invalid balance_poll_seconds")
	}
	if cfg.HistoryPageSize <= 0 {
		return errors.New("invalid history_page_size")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("REMIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envURL := v.GetString("HORIZON_URL"); envURL != "" {
		cfg.HorizonURL = envURL
	}
	if envPassphrase := v.GetString("NETWORK_PASSPHRASE"); envPassphrase != "" {
		cfg.NetworkPassphrase = envPassphrase
	}
	cfg.SignerSeed = v.GetString("SIGNER_SEED")
	return nil
}

// FindAsset resolves a configured asset by code. "XLM" always resolves to
// the native asset.
func (c *Config) FindAsset(code string) (asset.Asset, error) {
	if strings.EqualFold(code, asset.NativeCode) {
		return asset.Native(), nil
	}
	for _, a := range c.Assets {
		if strings.EqualFold(a.Code, code) {
			return asset.New(a.Code, a.Issuer)
		}
	}
	return asset.Asset{}, fmt.Errorf("asset %s is not configured", code)
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Send.TimeoutSeconds) * time.Second
}

func (c *Config) SwapTimeout() time.Duration {
	return time.Duration(c.Swap.TimeoutSeconds) * time.Second
}

func (c *Config) DepositTimeout() time.Duration {
	return time.Duration(c.Deposit.TimeoutSeconds) * time.Second
}

func (c *Config) BalancePollInterval() time.Duration {
	return time.Duration(c.BalancePollSecs) * time.Second
}
