package config

import (
	"errors"
	"fmt"
	"time"
)

type Relayer struct {
	Name         string `yaml:"name"`
	Kind         string `yaml:"kind"` // zerodev or pimlico
	BundlerURL   string `yaml:"bundler_url"`
	PaymasterURL string `yaml:"paymaster_url"`
}

type Configuration struct {
	// Server config
	Server struct {
		Port      int    `yaml:"port"`
		UseSSL    bool   `yaml:"ssl" envconfig:"SSL"`
		CertFile  string `yaml:"cert_file" split_words:"true"`
		KeyFile   string `yaml:"key_file" split_words:"true"`
		RedisPort int    `yaml:"redis_port" split_words:"true"`
		RedisHost string `yaml:"redis_host" split_words:"true"`
	} `yaml:"server"`
	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`
	Auth struct {
		// signs and verifies session tokens, never logged
		JWTSecret string `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	} `yaml:"auth"`
	Custody struct {
		BaseURL string `yaml:"base_url" split_words:"true"`
	} `yaml:"custody"`
	// token credited by the validation endpoints
	Token struct {
		ChainID   int64  `yaml:"chain_id" split_words:"true"`
		Contract  string `yaml:"contract"`
		Symbol    string `yaml:"symbol"`
		Decimals  int32  `yaml:"decimals"`
		PriceID   string `yaml:"price_id" split_words:"true"`
		Source    string `yaml:"source"`
		Recipient string `yaml:"recipient"`
	} `yaml:"token"`
	Price struct {
		BaseURL  string        `yaml:"base_url" split_words:"true"`
		CacheTTL time.Duration `yaml:"cache_ttl" split_words:"true"`
		FixedUSD string        `yaml:"fixed_usd" split_words:"true"`
	} `yaml:"price"`
	// fallback order
	Relayers       []Relayer          `yaml:"relayers" ignored:"true"`
	KernelVersion  string             `yaml:"kernel_version" split_words:"true"`
	AccountIndex   uint64             `yaml:"account_index" split_words:"true"`
	Networks       map[int64][]string `yaml:"networks" ignored:"true"`
	ReceiptTimeout time.Duration      `yaml:"receipt_timeout" split_words:"true"`
	Poller         struct {
		Interval time.Duration `yaml:"interval"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"poller"`
}

var Config Configuration

const (
	DefaultPort          = 8080
	DefaultKernelVersion = "0.3.1"
	DefaultPriceBaseURL  = "https://api.coingecko.com/api/v3"
)

func (c *Configuration) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.RedisHost == "" {
		c.Server.RedisHost = "localhost"
	}
	if c.Server.RedisPort == 0 {
		c.Server.RedisPort = 6379
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.KernelVersion == "" {
		c.KernelVersion = DefaultKernelVersion
	}
	if c.Price.BaseURL == "" {
		c.Price.BaseURL = DefaultPriceBaseURL
	}
	if c.Token.Source == "" {
		c.Token.Source = "recovery"
	}
}

// Validate reports every missing required setting at once.
func (c *Configuration) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Custody.BaseURL == "" {
		errs = append(errs, errors.New("custody.base_url is required"))
	}
	if c.Token.ChainID == 0 || c.Token.Contract == "" {
		errs = append(errs, errors.New("token.chain_id and token.contract are required"))
	}
	if c.Token.Recipient == "" {
		errs = append(errs, errors.New("token.recipient is required"))
	}
	if c.Token.PriceID == "" && c.Price.FixedUSD == "" {
		errs = append(errs, errors.New("token.price_id or price.fixed_usd is required"))
	}
	if len(c.Relayers) == 0 {
		errs = append(errs, errors.New("at least one relayer is required"))
	}
	for i, r := range c.Relayers {
		if r.Name == "" || r.BundlerURL == "" {
			errs = append(errs, fmt.Errorf("relayers[%d]: name and bundler_url are required", i))
		}
	}
	if c.Server.UseSSL && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		errs = append(errs, errors.New("server.cert_file and server.key_file are required with ssl"))
	}
	return errors.Join(errs...)
}
