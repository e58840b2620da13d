package main

import (
	"context"
	"flag"
	"time"

	"gorecovery/EVMRPC"
	"gorecovery/aa"
	"gorecovery/config"
	"gorecovery/custody"
	"gorecovery/logger"
	"gorecovery/metrics"
	"gorecovery/networks"
	"gorecovery/poller"
	"gorecovery/recovery"
	"gorecovery/redis"
	"gorecovery/templates"
	"gorecovery/txbuilder"
	"gorecovery/txvalidator"
	"gorecovery/workers"
	"gorecovery/workers/handlers"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the yaml configuration")
	flag.Parse()

	config.Init(*configPath)
	cfg := config.Config

	logger.Init(cfg.App.Env)
	defer logger.Sync()
	logger.Info("Starting recovery service", zap.String("env", cfg.App.Env))

	metrics.Init()

	reg := networks.NewRegistry(networks.Defaults, cfg.Networks)
	pool := EVMRPC.NewPool(reg, nil)
	builder := txbuilder.New(pool)

	kernel, err := aa.ParseKernelVersion(cfg.KernelVersion)
	if err != nil {
		logger.Fatal("invalid kernel version", zap.Error(err))
	}
	relayers := make([]aa.RelayerConfig, 0, len(cfg.Relayers))
	for _, r := range cfg.Relayers {
		kind, err := aa.ParseProviderKind(r.Kind)
		if err != nil {
			logger.Fatal("invalid relayer", zap.String("name", r.Name), zap.Error(err))
		}
		relayers = append(relayers, aa.RelayerConfig{
			Name:         r.Name,
			Kind:         kind,
			BundlerURL:   r.BundlerURL,
			PaymasterURL: r.PaymasterURL,
		})
	}
	bridge, err := aa.NewBridge(aa.BridgeConfig{
		KernelVersion:  kernel,
		AccountIndex:   cfg.AccountIndex,
		Relayers:       relayers,
		ReceiptTimeout: cfg.ReceiptTimeout,
	}, custody.NewClient(cfg.Custody.BaseURL, nil), pool)
	if err != nil {
		logger.Fatal("cannot create account abstraction bridge", zap.Error(err))
	}

	// connect to Redis, without persistence do not continue
	store := redis.New(cfg.Server.RedisHost, cfg.Server.RedisPort)
	defer store.Close()
	if err := store.Ping(context.Background()); err != nil {
		logger.Fatal("redis unavailable", zap.Error(err))
	}

	var prices txvalidator.PriceOracle
	if cfg.Price.FixedUSD != "" {
		fixed, err := decimal.NewFromString(cfg.Price.FixedUSD)
		if err != nil {
			logger.Fatal("invalid price.fixed_usd", zap.Error(err))
		}
		prices = txvalidator.FixedPrice(fixed)
	} else {
		prices = txvalidator.NewCoinGecko(cfg.Price.BaseURL, cfg.Token.PriceID, cfg.Price.CacheTTL, nil)
	}

	if err := txbuilder.ValidateAddress(cfg.Token.Contract); err != nil {
		logger.Fatal("invalid token.contract", zap.Error(err))
	}
	tokenCfg := txvalidator.Config{
		ChainID:  cfg.Token.ChainID,
		Token:    common.HexToAddress(cfg.Token.Contract),
		Decimals: cfg.Token.Decimals,
		Source:   cfg.Token.Source,
	}
	if err := txbuilder.ValidateAddress(cfg.Token.Recipient); err != nil {
		logger.Fatal("invalid token.recipient", zap.Error(err))
	}
	recipient := common.HexToAddress(cfg.Token.Recipient)
	tokenCfg.Recipient = &recipient
	validator, err := txvalidator.New(tokenCfg, pool, store, prices)
	if err != nil {
		logger.Fatal("cannot create validator", zap.Error(err))
	}

	pollOpts := poller.Options{Interval: cfg.Poller.Interval, Timeout: cfg.Poller.Timeout}
	if pollOpts.Timeout <= 0 {
		pollOpts.Timeout = poller.DefaultTimeout
	}

	svc := &handlers.Service{
		Networks:  reg,
		Templates: templates.MustNewRegistry(),
		Builder:   builder,
		Recovery:  recovery.New(bridge, builder),
		Validator: validator,
		Ledger:    store,
		Credits:   store,
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		Poller:    pollOpts,
		Ping:      store.Ping,
	}

	err = workers.Worker_HTTP(workers.ServerConfig{
		Port:            cfg.Server.Port,
		UseSSL:          cfg.Server.UseSSL,
		CertFile:        cfg.Server.CertFile,
		KeyFile:         cfg.Server.KeyFile,
		ShutdownTimeout: pollOpts.Timeout + 5*time.Second,
	}, workers.NewRouter(svc))
	if err != nil {
		logger.Fatal("HTTP service failed", zap.Error(err))
	}
}
