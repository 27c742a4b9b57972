package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"gopkg.in/yaml.v2"

	col "github.com/bitcoinfees/ethgas/collect"
	"github.com/bitcoinfees/ethgas/collect/ethrpc"
	est "github.com/bitcoinfees/ethgas/estimate"
	"github.com/bitcoinfees/ethgas/predict"
	"github.com/bitcoinfees/ethgas/publish"
)

const (
	defaultConfigFileName = "config.yml"
	configFileEnv         = "ETHGAS_CONFIG"
	dataDirEnv            = "ETHGAS_DATADIR"
)

var (
	defaultOracleConfig = OracleConfig{
		Thresholds:           predict.DefaultThresholds,
		WindowSize:           est.DefaultWindowSize,
		WarmUp:               100,
		DefaultBlockInterval: est.DefaultBlockInterval,
		Collect: col.Config{
			PollPeriod: 5,
			ConfirmLag: 3,
			Prefetch:   4,
			CacheSize:  256,
		},
	}
	defaultConfig = config{
		OracleConfig: defaultOracleConfig,
		EthRPC: ethrpc.Config{
			URL:     "http://localhost:8545",
			Timeout: 30,
		},
		AppRPC: AppRPCConfig{
			Host: "localhost",
			Port: "8360",
		},
		Publish: PublishConfig{
			Redis: publish.RedisConfig{
				Prefix: "ethgas:",
			},
		},
		Log: LogConfig{
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     7,
		},
		DataDir: btcutil.AppDataDir("ethgas", false),
	}
	defaultConfigFile  = filepath.Join(defaultConfig.DataDir, defaultConfigFileName)
	defaultLogFileName = "ethgas.log"
	defaultPublishDir  = "json"
)

type config struct {
	OracleConfig `yaml:",inline"`
	EthRPC       ethrpc.Config `yaml:"ethrpc" json:"ethrpc"`
	AppRPC       AppRPCConfig  `yaml:"apprpc" json:"apprpc"`
	Publish      PublishConfig `yaml:"publish" json:"publish"`
	Log          LogConfig     `yaml:"log" json:"log"`
	DataDir      string        `yaml:"datadir" json:"datadir"`
	LogFile      string        `yaml:"logfile" json:"logfile"`
}

type AppRPCConfig struct {
	Host string `json:"host" yaml:"host"`
	Port string `json:"port" yaml:"port"`
}

type PublishConfig struct {
	Dir   string              `yaml:"dir" json:"dir"`     // Defaults to json/ in the data dir
	Redis publish.RedisConfig `yaml:"redis" json:"redis"` // Disabled if url is empty
}

// loadConfig loads the config. The input arguments specify the path to the
// config file / data directory.
// They can also be specified through env variables (configFileEnv / dataDirEnv),
// with lower precedence.
// If not specified, they are set to default values.
func loadConfig(configFile, dataDir string) (config, error) {
	cfg := defaultConfig

	if configFile == "" {
		configFile = os.Getenv(configFileEnv)
	}
	if dataDir == "" {
		dataDir = os.Getenv(dataDirEnv)
	}

	if configFile != "" {
		// Config file was specified explicitly, so return an error if it
		// couldn't be read.
		if c, err := os.ReadFile(configFile); err != nil {
			return cfg, err
		} else if err := yaml.Unmarshal(c, &cfg); err != nil {
			return cfg, err
		}
	} else {
		// Check the default config file location. No error if it couldn't be
		// read, but error if the yaml could not be unmarshaled.
		if dataDir == "" {
			configFile = defaultConfigFile
		} else {
			configFile = filepath.Join(dataDir, defaultConfigFileName)
		}
		if c, err := os.ReadFile(configFile); err == nil {
			if err := yaml.Unmarshal(c, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	// dataDir specified by env or input argument takes precedence
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, defaultLogFileName)
	}
	if cfg.Publish.Dir == "" {
		cfg.Publish.Dir = filepath.Join(cfg.DataDir, defaultPublishDir)
	}

	if err := cfg.OracleConfig.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %v", err)
	}

	// Create the datadir if not exists
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// masked returns a copy of the config that is safe to display.
func (c config) masked() config {
	c.EthRPC.URL = publish.MaskURL(c.EthRPC.URL)
	c.Publish.Redis.URL = publish.MaskURL(c.Publish.Redis.URL)
	return c
}
