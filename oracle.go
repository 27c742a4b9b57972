package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"

	col "github.com/bitcoinfees/ethgas/collect"
	est "github.com/bitcoinfees/ethgas/estimate"
	"github.com/bitcoinfees/ethgas/predict"
	"github.com/bitcoinfees/ethgas/publish"
)

var errInProgress = errors.New("result not yet available")
var errShutdown = errors.New("oracle is shutting down")

type ObservationDB interface {
	est.ObservationDB
	Close() error
}

type ResultDB interface {
	predict.ResultDB
	Close() error
}

type Oracle struct {
	rec   *predict.Recommendation
	table predict.Table
	err   error

	window    *est.Window
	collect   *col.Collector
	obsdb     ObservationDB
	resultdb  ResultDB
	publisher publish.Publisher
	cfg       OracleConfig

	cycleTimer    metrics.Timer
	windowGauge   metrics.Gauge
	fetchErrors   metrics.Counter
	publishErrors metrics.Counter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mux    sync.RWMutex
}

type OracleConfig struct {
	predict.Thresholds `yaml:",inline"`

	WindowSize           int        `yaml:"windowsize" json:"windowsize"`
	WarmUp               int        `yaml:"warmup" json:"warmup"` // Blocks fetched at startup if not persisted
	DefaultBlockInterval float64    `yaml:"defaultblockinterval" json:"defaultblockinterval"`
	Collect              col.Config `yaml:"collect" json:"collect"`

	logger   *zap.Logger      `yaml:"-" json:"-"`
	registry metrics.Registry `yaml:"-" json:"-"`
}

func (c OracleConfig) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("windowsize must be positive")
	}
	if c.WarmUp < 0 || c.WarmUp > c.WindowSize {
		return fmt.Errorf("warmup must be within [0, windowsize]")
	}
	if c.DefaultBlockInterval <= 0 {
		return fmt.Errorf("defaultblockinterval must be positive")
	}
	if c.Collect.PollPeriod <= 0 {
		return fmt.Errorf("pollperiod must be positive")
	}
	return nil
}

func NewOracle(obsdb ObservationDB, resultdb ResultDB, publisher publish.Publisher, cfg OracleConfig) (*Oracle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.registry == nil {
		cfg.registry = metrics.DefaultRegistry
	}

	cfg.Collect.Logger = cfg.logger
	collect, err := col.NewCollector(cfg.Collect)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Oracle{
		err:       errInProgress,
		window:    est.NewWindow(cfg.WindowSize),
		collect:   collect,
		obsdb:     obsdb,
		resultdb:  resultdb,
		publisher: publisher,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}

	// About one day's worth of cycles at the nominal block interval
	reservoirSize := int(86400 / cfg.DefaultBlockInterval)
	o.cycleTimer = metrics.NewCustomTimer(metrics.NewHistogram(
		metrics.NewExpDecaySample(reservoirSize, 0.015)), metrics.NewMeter())
	o.windowGauge = metrics.NewGauge()
	o.fetchErrors = metrics.NewCounter()
	o.publishErrors = metrics.NewCounter()
	for name, m := range map[string]interface{}{
		"cycle":         o.cycleTimer,
		"window":        o.windowGauge,
		"fetcherrors":   o.fetchErrors,
		"publisherrors": o.publishErrors,
	} {
		cfg.registry.Unregister(name)
		if err := cfg.registry.Register(name, m); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Oracle) Run() error {
	logger := o.cfg.logger
	o.wg.Add(1)
	defer logger.Info("Oracle all stopped.")
	defer o.wg.Wait()
	defer o.wg.Done()
	defer o.resultdb.Close()
	defer o.obsdb.Close()
	defer o.publisher.Close()
	defer o.setResult(nil, nil, errShutdown)
	defer o.collect.Stop()

	logger.Info("Oracle starting up..", zap.String("version", version))
	o.logBanner()

	if rec, table, err := o.resultdb.GetResult(); err != nil {
		logger.Error("Loading previous result", zap.Error(err))
	} else if rec != nil {
		logger.Info("Loaded previous result", zap.Int64("block", rec.BlockNum))
		o.setResult(rec, table, nil)
	}

	start, ok := o.ready()
	if !ok {
		return nil
	}
	next, err := o.warmUp(start)
	if err != nil {
		return err
	}
	if o.ctx.Err() != nil {
		return nil
	}
	o.update()

	if err := o.collect.Run(next); err != nil {
		return err
	}

	logger.Info("Oracle startup complete.", zap.Int64("start", start))
	for {
		select {
		case ob := <-o.collect.B:
			o.processObservation(ob)
		case err := <-o.collect.E:
			o.fetchErrors.Inc(1)
			if col.IsTransient(err) {
				logger.Warn("Collector", zap.Error(err))
			} else {
				logger.Error("Collector", zap.Error(err))
			}
		case <-o.ctx.Done():
			return nil
		}
	}
}

// ready returns the number of the highest block that can be processed,
// retrying every poll period while the block source is unavailable. ok is
// false if the oracle was stopped first.
func (o *Oracle) ready() (start int64, ok bool) {
	ticker := time.NewTicker(time.Duration(o.cfg.Collect.PollPeriod) * time.Second)
	defer ticker.Stop()
	for {
		n, err := o.collect.Ready(o.ctx)
		if err == nil {
			return n, true
		}
		o.fetchErrors.Inc(1)
		o.cfg.logger.Warn("Waiting for block source", zap.Error(err))
		select {
		case <-ticker.C:
		case <-o.ctx.Done():
			return 0, false
		}
	}
}

// warmUp fills the window up to block number start, from the observation DB
// where possible and from the block source otherwise. It returns the number of
// the first block the collector should process: start+1, or the first block
// that could not be fetched.
func (o *Oracle) warmUp(start int64) (int64, error) {
	logger := o.cfg.logger
	size := int64(o.window.Size())

	obs, err := o.obsdb.Get(start-size+1, start)
	if err != nil {
		return 0, err
	}
	for _, ob := range obs {
		o.window.Put(ob)
	}
	if err := o.obsdb.Delete(0, start-size); err != nil {
		logger.Error("ObservationDB delete", zap.Error(err))
	}
	logger.Info("Loaded observations", zap.Int("count", len(obs)))

	from := start - int64(o.cfg.WarmUp) + 1
	if len(obs) > 0 && obs[0].Number < from {
		// Gaps after the persisted observations are filled too.
		from = obs[0].Number
	}
	if from < 0 {
		from = 0
	}
	for _, r := range o.missing(from, start) {
		logger.Info("Fetching warm-up blocks", zap.Int64("from", r[0]), zap.Int64("to", r[1]))
		fetched, err := o.collect.FetchRange(o.ctx, r[0], r[1])
		for _, ob := range fetched {
			o.window.Put(ob)
		}
		if err := o.obsdb.Put(fetched); err != nil {
			logger.Error("ObservationDB put", zap.Error(err))
		}
		if err != nil {
			failed := r[0] + int64(len(fetched))
			if o.ctx.Err() == nil {
				o.fetchErrors.Inc(1)
				logger.Warn("Warm-up incomplete", zap.Int64("resume", failed), zap.Error(err))
			}
			return failed, nil
		}
	}
	return start + 1, nil
}

// missing returns the contiguous ranges of block numbers within [from, to]
// that are not in the window.
func (o *Oracle) missing(from, to int64) [][2]int64 {
	var ranges [][2]int64
	for n := from; n <= to; n++ {
		if _, ok := o.window.Get(n); ok {
			continue
		}
		if k := len(ranges); k > 0 && ranges[k-1][1] == n-1 {
			ranges[k-1][1] = n
		} else {
			ranges = append(ranges, [2]int64{n, n})
		}
	}
	return ranges
}

func (o *Oracle) processObservation(ob est.Observation) {
	logger := o.cfg.logger
	if !o.window.Put(ob) {
		logger.Warn("Observation outside window", zap.Stringer("observation", ob))
		return
	}
	if err := o.obsdb.Put([]est.Observation{ob}); err != nil {
		logger.Error("ObservationDB put", zap.Error(err))
	}
	if err := o.obsdb.Delete(0, ob.Number-int64(o.window.Size())); err != nil {
		logger.Error("ObservationDB delete", zap.Error(err))
	}
	o.update()
}

// update recomputes the result from the window and publishes it.
func (o *Oracle) update() {
	logger := o.cfg.logger
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Update cycle failed", zap.Any("panic", r), zap.Stack("stack"))
			o.setResult(nil, nil, fmt.Errorf("update cycle failed: %v", r))
		}
	}()
	defer o.cycleTimer.UpdateSince(time.Now())

	latest, ok := o.window.Latest()
	if !ok {
		logger.Warn("No observations; result not available.")
		return
	}
	obs := o.window.Observations()
	o.windowGauge.Update(int64(len(obs)))

	table := predict.MakeTable(est.NewCurve(obs))
	tiers := predict.SelectTiers(table, o.cfg.Thresholds)
	blockTime := est.BlockInterval(obs, o.cfg.DefaultBlockInterval)
	rec := predict.NewRecommendation(tiers, blockTime, latest)
	o.setResult(rec, table, nil)

	logger.Info("Recommendation updated", zap.Stringer("recommendation", rec), zap.Int("blocks", len(obs)))
	if err := rec.Err(); err != nil {
		logger.Warn("Tiers unavailable", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(o.ctx, 10*time.Second)
	defer cancel()
	if err := o.publisher.Publish(ctx, rec, table); err != nil {
		o.publishErrors.Inc(1)
		logger.Error("Publish", zap.Error(err))
	}
	if err := o.resultdb.PutResult(rec, table); err != nil {
		logger.Error("ResultDB put", zap.Error(err))
	}
}

func (o *Oracle) logBanner() {
	th := o.cfg.Thresholds
	o.cfg.logger.Info("Gas price tiers",
		zap.String("safeLow", fmt.Sprintf("cheapest price accepted by >= %v%% of the last %d blocks", th.SafeLow, o.cfg.WindowSize)),
		zap.String("standard", fmt.Sprintf("cheapest price accepted by >= %v%% of the last %d blocks", th.Standard, o.cfg.WindowSize)),
		zap.String("fast", fmt.Sprintf("cheapest price accepted by >= %v%% of the last %d blocks", th.Fast, o.cfg.WindowSize)),
		zap.String("fastest", "cheapest price accepted by the most blocks"),
		zap.Int64("confirmlag", o.cfg.Collect.ConfirmLag))
}

func (o *Oracle) Status() map[string]string {
	status := make(map[string]string)

	if rec, _, err := o.Result(); err != nil {
		status["result"] = err.Error()
	} else if names := rec.Unavailable(); len(names) > 0 {
		status["result"] = "OK (unavailable: " + strings.Join(names, ", ") + ")"
	} else {
		status["result"] = "OK"
	}

	if latest, ok := o.window.Latest(); ok {
		status["window"] = fmt.Sprintf("%d/%d blocks, latest %d", o.window.Len(), o.window.Size(), latest)
	} else {
		status["window"] = "empty"
	}

	status["collector"] = fmt.Sprintf("next block %d, head %d", o.collect.Next(), o.collect.Head())
	return status
}

// Stop blocks until Run has returned. It is idempotent.
func (o *Oracle) Stop() {
	o.cancel()
	o.wg.Wait()
}

func (o *Oracle) Result() (*predict.Recommendation, predict.Table, error) {
	o.mux.RLock()
	defer o.mux.RUnlock()
	return o.rec, o.table, o.err
}

func (o *Oracle) setResult(rec *predict.Recommendation, table predict.Table, err error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.rec, o.table, o.err = rec, table, err
}

// Window returns the observations currently in the window.
func (o *Oracle) Window() []est.Observation {
	return o.window.Observations()
}
