package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/habitvault/habitvault-backend/internal/clock"
	"github.com/habitvault/habitvault-backend/internal/coordinator"
	"github.com/habitvault/habitvault-backend/internal/fhe"
	"github.com/habitvault/habitvault-backend/internal/history"
	"github.com/habitvault/habitvault-backend/internal/ledger"
	"github.com/habitvault/habitvault-backend/internal/metrics"
	"github.com/habitvault/habitvault-backend/internal/model"
	clickhouseRepo "github.com/habitvault/habitvault-backend/internal/repository/clickhouse"
	"github.com/habitvault/habitvault-backend/internal/status"
	"github.com/habitvault/habitvault-backend/internal/store"
	"github.com/habitvault/habitvault-backend/internal/transport"
	"github.com/habitvault/habitvault-backend/pkg/batcher"
)

type config struct {
	Addr               string        `long:"addr" env:"HABITD_ADDR" description:"http listen address" default:":8080"`
	EthRPCURL          string        `long:"eth-rpc-url" env:"HABITD_ETH_RPC_URL" description:"Ethereum JSON-RPC URL" default:"http://127.0.0.1:8545"`
	ContractAddress    string        `long:"contract-address" env:"HABITD_CONTRACT_ADDRESS" description:"record contract address" required:"true"`
	ChainID            int64         `long:"chain-id" env:"HABITD_CHAIN_ID" description:"chain id for transaction signing" default:"11155111"`
	PrivateKey         string        `long:"private-key" env:"HABITD_PRIVATE_KEY" description:"hex signing key; omit for read-only mode"`
	RelayerURL         string        `long:"relayer-url" env:"HABITD_RELAYER_URL" description:"FHE relayer base URL" required:"true"`
	ClickhouseDSN      string        `long:"clickhouse-dsn" env:"HABITD_CLICKHOUSE_DSN" description:"optional ClickHouse DSN for the operation audit trail"`
	RefreshInterval    time.Duration `long:"refresh-interval" env:"HABITD_REFRESH_INTERVAL" description:"record snapshot refresh interval" default:"30s"`
	StatusDismissDelay time.Duration `long:"status-dismiss-delay" env:"HABITD_STATUS_DISMISS_DELAY" description:"how long success/error banners stay visible" default:"3s"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("habitd failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	contract := common.HexToAddress(cfg.ContractAddress)

	eth, err := ethclient.DialContext(ctx, cfg.EthRPCURL)
	if err != nil {
		return fmt.Errorf("dial ethereum rpc: %w", err)
	}
	defer eth.Close()

	signer, err := newSigner(cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		return err
	}
	if signer == nil {
		logger.Warn("no private key configured, running read-only")
	} else {
		logger.Info("signing enabled", zap.Stringer("account", signer.From))
	}

	ledgerClient, err := ledger.NewClient(contract, eth, signer)
	if err != nil {
		return fmt.Errorf("init ledger client: %w", err)
	}
	observedLedger := ledger.NewObservedClient(ledgerClient, metrics.NewLedgerClient())

	relayer, err := fhe.NewClient(cfg.RelayerURL, metrics.NewRelayerClient())
	if err != nil {
		return fmt.Errorf("init relayer client: %w", err)
	}

	recordStore, err := store.NewRecordStore(logger, observedLedger, metrics.NewRecordStore())
	if err != nil {
		return fmt.Errorf("init record store: %w", err)
	}

	statusMachine := status.NewMachine(cfg.StatusDismissDelay)

	historyOpts := []history.Option{}
	if cfg.ClickhouseDSN != "" {
		repo, repoErr := clickhouseRepo.NewRepository(cfg.ClickhouseDSN, metrics.NewAuditRepository())
		if repoErr != nil {
			return fmt.Errorf("init audit repository: %w", repoErr)
		}
		defer func() {
			_ = repo.Close()
		}()

		auditBatcher := batcher.New[model.Operation](logger, repo.InsertOperations, batcher.Config{
			FlushSize:           16,
			FlushInterval:       5 * time.Second,
			MaxFlushesPerSecond: 2,
		})
		auditBatcher.Start(ctx)
		defer auditBatcher.Stop()

		historyOpts = append(historyOpts, history.WithSink(auditBatcher))
		logger.Info("operation audit trail enabled")
	}

	historyLog, err := history.NewLog(logger, historyOpts...)
	if err != nil {
		return fmt.Errorf("init history log: %w", err)
	}

	coordinatorMetrics := metrics.NewCoordinator()

	encryption, err := coordinator.NewEncryptionCoordinator(logger, contract, relayer, coordinatorMetrics)
	if err != nil {
		return fmt.Errorf("init encryption coordinator: %w", err)
	}
	submission, err := coordinator.NewSubmissionCoordinator(
		logger, encryption, observedLedger, recordStore, statusMachine, historyLog, coordinatorMetrics)
	if err != nil {
		return fmt.Errorf("init submission coordinator: %w", err)
	}
	verification, err := coordinator.NewVerificationCoordinator(
		logger, contract, observedLedger, observedLedger, relayer,
		recordStore, statusMachine, historyLog, coordinatorMetrics)
	if err != nil {
		return fmt.Errorf("init verification coordinator: %w", err)
	}

	if available, availErr := observedLedger.IsAvailable(ctx); availErr != nil {
		logger.Warn("contract availability check failed", zap.Error(availErr))
	} else {
		logger.Info("contract availability checked", zap.Bool("available", available))
	}
	historyLog.Record(ctx, "执行合约可用性检查")

	if err := recordStore.Reload(ctx); err != nil {
		logger.Warn("initial snapshot load failed", zap.Error(err))
	}
	go func() {
		_ = clock.Every(ctx, cfg.RefreshInterval, func(ctx context.Context) {
			if err := recordStore.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("snapshot refresh failed", zap.Error(err))
			}
		})
	}()

	handler, err := transport.NewHandler(
		logger, recordStore, submission, verification, historyLog, statusMachine, observedLedger)
	if err != nil {
		return fmt.Errorf("init http handler: %w", err)
	}

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           cors.Default().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down the http server")
		if err := s.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown http server", zap.Error(err))
		}
	}()

	logger.Info("starting http server", zap.String("addr", cfg.Addr))
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newSigner(privateKey string, chainID int64) (*bind.TransactOpts, error) {
	if privateKey == "" {
		return nil, nil
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	signer, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("init transactor: %w", err)
	}
	return signer, nil
}
