package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/urfave/cli.v1"

	"github.com/bitcoinfees/ethgas/api"
)

var (
	commandStop = cli.Command{
		Name:   "stop",
		Usage:  "Stop the oracle",
		Action: stop,
	}
	commandVersion = cli.Command{
		Name:  "version",
		Usage: "Show app version",
		Action: func(ctx *cli.Context) error {
			fmt.Println(version)
			return nil
		},
	}
	commandStatus = cli.Command{
		Name:  "status",
		Usage: "Show application status",
		Description: `Show application status:

	result   : Whether or not a recommendation is available, and which tiers
	           could not be determined.
	window   : Number of blocks in the window, and the latest block number.
	collector: Next block to be processed, and the last seen chain head.`,
		Action: status,
	}
	commandGasPrice = cli.Command{
		Name:      "gasprice",
		Usage:     "Show the recommended gas prices (gwei)",
		ArgsUsage: "[TIER]",
		Description: `Show the recommended gas price of each tier in gwei, or of a single tier
(safeLow, standard, fast or fastest). An unavailable tier is shown as n/a.`,
		Action: gasPrice,
	}
	commandPredictTable = cli.Command{
		Name:   "predicttable",
		Usage:  "Show the hashpower acceptance of each gas price",
		Action: predictTable,
	}
	commandWindow = cli.Command{
		Name:      "window",
		Usage:     "Show the most recent block observations",
		ArgsUsage: "[N]",
		Description: `Show the last N observations in the window (all of them if N is omitted):
block number, timestamp, number of txs and the minimum gas price.`,
		Action: window,
	}
	commandSetDebug = cli.Command{
		Name:        "setdebug",
		Usage:       "Turn on/off debug-level logging",
		ArgsUsage:   "BOOL",
		Description: `Turn on debug-level logging with "true"; turn off with "false".`,
		Action:      setDebug,
	}
	commandMetrics = cli.Command{
		Name:   "metrics",
		Usage:  "Show app metrics",
		Action: appMetrics,
	}
	commandConfig = cli.Command{
		Name:   "config",
		Usage:  "Show app config settings",
		Action: appConfig,
	}
)

func contextClient(ctx *cli.Context) (*api.Client, error) {
	cfg, err := contextConfig(ctx)
	if err != nil {
		return nil, err
	}
	c := api.NewClient(api.Config{
		Host:    cfg.AppRPC.Host,
		Port:    cfg.AppRPC.Port,
		Timeout: 15,
	})
	return c, nil
}

func stop(ctx *cli.Context) error {
	c, err := contextClient(ctx)
	if err != nil {
		return err
	}
	return c.Stop()
}

func status(ctx *cli.Context) error {
	c, err := contextClient(ctx)
	if err != nil {
		return err
	}
	result, err := c.Status()
	if err != nil {
		return err
	}
	for _, k := range []string{"result", "window", "collector"} {
		fmt.Printf("%-10s: %s\n", k, result[k])
	}
	return nil
}

func gasPrice(ctx *cli.Context) error {
	c, err := contextClient(ctx)
	if err != nil {
		return err
	}
	rec, err := c.GasPrice()
	if err != nil {
		return err
	}
	tiers := []struct {
		name  string
		price *float64
	}{
		{"safeLow", rec.SafeLow},
		{"standard", rec.Standard},
		{"fast", rec.Fast},
		{"fastest", rec.Fastest},
	}
	format := func(p *float64) string {
		if p == nil {
			return "n/a"
		}
		return strconv.FormatFloat(*p, 'f', 1, 64)
	}

	if name := ctx.Args().First(); name != "" {
		for _, t := range tiers {
			if t.name == name {
				fmt.Println(format(t.price))
				return nil
			}
		}
		return fmt.Errorf("unknown tier %q", name)
	}
	for _, t := range tiers {
		fmt.Printf("%-9s: %6s\n", t.name, format(t.price))
	}
	fmt.Printf("%-9s: %6.2fs\n", "blocktime", rec.BlockTime)
	fmt.Printf("%-9s: %d\n", "block", rec.BlockNum)
	return nil
}

func predictTable(ctx *cli.Context) error {
	c, err := contextClient(ctx)
	if err != nil {
		return err
	}
	table, err := c.PredictTable()
	if err != nil {
		return err
	}
	for _, r := range table {
		fmt.Printf("%6.1f: %3d%%\n", r.GasPrice.Gwei(), r.Accepting)
	}
	return nil
}

func window(ctx *cli.Context) error {
	var n int
	if nStr := ctx.Args().First(); nStr != "" {
		var err error
		if n, err = strconv.Atoi(nStr); err != nil {
			return err
		}
	}
	c, err := contextClient(ctx)
	if err != nil {
		return err
	}
	obs, err := c.Window(n)
	if err != nil {
		return err
	}
	for _, o := range obs {
		if b, ok := o.Accepted(); ok {
			fmt.Printf("%10d %10d %5d %8.1f\n", o.Number, o.Time, o.NumTxs, b.Gwei())
		} else {
			fmt.Printf("%10d %10d %5d %8s\n", o.Number, o.Time, o.NumTxs, "-")
		}
	}
	return nil
}

func setDebug(ctx *cli.Context) error {
	on, err := strconv.ParseBool(ctx.Args().First())
	if err != nil {
		return err
	}
	c, err := contextClient(ctx)
	if err != nil {
		return err
	}
	return c.SetDebug(on)
}

func appConfig(ctx *cli.Context) error {
	c, err := contextClient(ctx)
	if err != nil {
		return err
	}
	result, err := c.Config()
	if err != nil {
		return err
	}
	return printJSON(result)
}

func appMetrics(ctx *cli.Context) error {
	c, err := contextClient(ctx)
	if err != nil {
		return err
	}
	result, err := c.Metrics()
	if err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
