package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v1"

	col "github.com/bitcoinfees/ethgas/collect"
	"github.com/bitcoinfees/ethgas/collect/ethrpc"
	"github.com/bitcoinfees/ethgas/db/bolt"
	"github.com/bitcoinfees/ethgas/publish"
)

const version = "0.1.0"

var app *cli.App

func init() {
	app = cli.NewApp()
	app.Name = "ethgas"
	app.Usage = "Ethereum gas price oracle"
	app.Version = version
	app.Flags = []cli.Flag{
		configFlag,
		dataDirFlag,
	}
	app.Commands = []cli.Command{
		commandStart,
		commandStop,
		commandVersion,
		commandStatus,
		commandGasPrice,
		commandPredictTable,
		commandWindow,
		commandSetDebug,
		commandMetrics,
		commandConfig,
	}
}

var (
	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: fmt.Sprintf("Path to config file (alternatively, use %s env var)", configFileEnv),
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir, d",
		Usage: fmt.Sprintf("Path to data directory (alternatively, use %s env var)", dataDirEnv),
	}
)

var commandStart = cli.Command{
	Name:  "start",
	Usage: "Start the oracle",
	Description: `Start the program. The program will follow the chain head, summarizing
each block once it is buried by confirmlag blocks, and will publish gas
price recommendations after each block.

Use ethgas status to check the collection status.`,
	Action: runOracle,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func contextConfig(ctx *cli.Context) (config, error) {
	return loadConfig(ctx.GlobalString("config"), ctx.GlobalString("datadir"))
}

func runOracle(ctx *cli.Context) error {
	cfg, err := contextConfig(ctx)
	if err != nil {
		return err
	}

	obsdb, err := loadObservationDB(cfg)
	if err != nil {
		return fmt.Errorf("loadObservationDB: %v", err)
	}

	resultdb, err := loadResultDB(cfg)
	if err != nil {
		return fmt.Errorf("loadResultDB: %v", err)
	}

	publisher, err := loadPublisher(cfg)
	if err != nil {
		return fmt.Errorf("loadPublisher: %v", err)
	}

	collectConfig, err := loadCollectorConfig(cfg)
	if err != nil {
		return fmt.Errorf("loadCollectorConfig: %v", err)
	}

	dLog := NewFileDebugLog(cfg.LogFile, cfg.Log)
	defer dLog.Close()

	oracleConfig := cfg.OracleConfig
	oracleConfig.Collect = collectConfig
	oracleConfig.logger = dLog.Logger
	oracle, err := NewOracle(obsdb, resultdb, publisher, oracleConfig)
	if err != nil {
		return fmt.Errorf("NewOracle: %v", err)
	}
	service := &Service{Oracle: oracle, DLog: dLog, Cfg: cfg}

	os.Stdout.Close()
	os.Stderr.Close()
	os.Stdin.Close()

	errc := make(chan error, 2)
	go func() { errc <- oracle.Run() }()
	go func() { errc <- service.ListenAndServe() }()

	// Signal handling
	sigc := make(chan os.Signal, 3)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		<-sigc
		oracle.Stop()
	}()

	err = <-errc
	// Blocks until it is safely shutdown. It is idempotent, so no harm if
	// the oracle is already stopped.
	oracle.Stop()
	if err != nil {
		dLog.Logger.Error("Exiting", zap.Error(err))
	}
	return err
}

func loadObservationDB(cfg config) (ObservationDB, error) {
	const dbFileName = "observations.db"
	dbfile := filepath.Join(cfg.DataDir, dbFileName)
	return bolt.LoadObservationDB(dbfile)
}

func loadResultDB(cfg config) (ResultDB, error) {
	const dbFileName = "result.db"
	dbfile := filepath.Join(cfg.DataDir, dbFileName)
	return bolt.LoadResultDB(dbfile)
}

func loadPublisher(cfg config) (publish.Publisher, error) {
	f, err := publish.NewFile(cfg.Publish.Dir)
	if err != nil {
		return nil, err
	}
	publishers := publish.Multi{f}
	if cfg.Publish.Redis.URL != "" {
		r, err := publish.NewRedis(cfg.Publish.Redis)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, r)
	}
	return publishers, nil
}

func loadCollectorConfig(cfg config) (col.Config, error) {
	getHead, getBlock, err := ethrpc.Getters(context.Background(), cfg.EthRPC)
	if err != nil {
		return col.Config{}, err
	}

	// Wrap the getters with timers
	reservoirSize := 60 / cfg.Collect.PollPeriod * 60 * 24 // About one day's worth
	if reservoirSize < 1028 {
		reservoirSize = 1028
	}
	newTimer := func(name string) metrics.Timer {
		t := metrics.NewCustomTimer(metrics.NewHistogram(
			metrics.NewExpDecaySample(reservoirSize, 0.015)), metrics.NewMeter())
		metrics.Register(name, t)
		return t
	}
	getHeadTimer, getBlockTimer := newTimer("gethead"), newTimer("getblock")
	timedGetHead := func(ctx context.Context) (int64, error) {
		defer getHeadTimer.UpdateSince(time.Now())
		return getHead(ctx)
	}
	timedGetBlock := func(ctx context.Context, number int64) (col.Block, error) {
		defer getBlockTimer.UpdateSince(time.Now())
		return getBlock(ctx, number)
	}

	c := cfg.Collect
	c.GetHead = timedGetHead
	c.GetBlock = timedGetBlock
	return c, nil
}
