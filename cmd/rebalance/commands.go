package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/rebalance/internal/config"
	"github.com/mtlprog/rebalance/internal/distribution"
	"github.com/mtlprog/rebalance/internal/domain"
	"github.com/mtlprog/rebalance/internal/export"
	"github.com/mtlprog/rebalance/internal/holdings"
	"github.com/mtlprog/rebalance/internal/orderplan"
	"github.com/mtlprog/rebalance/internal/plan"
)

func snapshotFlag(cfg config.Config) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "snapshot",
		Aliases:  []string{"s"},
		Usage:    "JSON file with the token holdings",
		Value:    cfg.SnapshotPath,
		Required: cfg.SnapshotPath == "",
	}
}

func fetchPricesFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "fetch-prices",
		Usage: "fill zero token values from CoinGecko",
	}
}

func loadTokens(c *cli.Context, cfg config.Config) ([]domain.Token, error) {
	var prices holdings.PriceFetcher
	if c.Bool("fetch-prices") {
		prices = newPriceFetcher(cfg)
	}
	return holdings.NewFileSource(c.String("snapshot"), prices).Load(c.Context)
}

func planCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "print the order plan that moves the snapshot to a target distribution",
		Flags: []cli.Flag{
			snapshotFlag(cfg),
			fetchPricesFlag(),
			&cli.StringFlag{
				Name:    "distribution",
				Aliases: []string{"d"},
				Usage:   "preset distribution name",
				Value:   cfg.DistributionPreset,
			},
			&cli.StringFlag{
				Name:  "distribution-file",
				Usage: "JSON file with a custom distribution ({\"name\": ..., \"map\": {id: percent}})",
			},
			&cli.StringFlag{
				Name:  "intermediate",
				Usage: "id or name of the intermediate currency",
				Value: cfg.IntermediateCurrency,
			},
			&cli.StringFlag{
				Name:  "threshold",
				Usage: "minimum drift, as a fraction of portfolio value, that produces an order",
				Value: cfg.PlanThreshold.String(),
			},
			&cli.StringSliceFlag{
				Name:  "stakeable",
				Usage: "symbols with a staking handler (defaults to STAKEABLE_SYMBOLS)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "output format: json or table",
				Value: "json",
			},
			&cli.StringFlag{
				Name:  "xlsx",
				Usage: "also write the plan to this .xlsx file",
			},
		},
		Action: func(c *cli.Context) error {
			format := c.String("format")
			if format != "json" && format != "table" {
				return fmt.Errorf("unknown --format %q", format)
			}
			threshold, err := decimal.NewFromString(c.String("threshold"))
			if err != nil {
				return fmt.Errorf("invalid --threshold: %w", err)
			}

			raw, err := loadTokens(c, cfg)
			if err != nil {
				return err
			}

			target, err := resolveDistribution(c, raw)
			if err != nil {
				return err
			}

			var opts []plan.Option
			if path := c.String("xlsx"); path != "" {
				opts = append(opts, plan.WithExporters(export.NewService(export.NewXLSXWriter(path))))
			}
			planner := orderplan.New(c.String("intermediate"), orderplan.WithThreshold(threshold))
			svc := plan.NewService(planner, newWrapper(cfg, c.StringSlice("stakeable")), plan.NewMemoryRepository(), opts...)

			rec, err := svc.Generate(c.Context, plan.Request{Tokens: raw, Distribution: target})
			if err != nil {
				return err
			}
			if format == "table" {
				return printTable(c.App.Writer, rec)
			}
			return printJSON(c.App.Writer, rec)
		},
	}
}

// resolveDistribution reads --distribution-file if given, else looks up the --distribution preset.
func resolveDistribution(c *cli.Context, raw []domain.Token) (domain.Distribution, error) {
	if path := c.String("distribution-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Distribution{}, fmt.Errorf("reading distribution file: %w", err)
		}
		var d domain.Distribution
		if err := json.Unmarshal(data, &d); err != nil {
			return domain.Distribution{}, fmt.Errorf("parsing distribution file: %w", err)
		}
		return d, nil
	}

	tokens, err := plan.Prepare(raw)
	if err != nil {
		return domain.Distribution{}, err
	}
	name := c.String("distribution")
	d, ok := distribution.Find(distribution.Presets(tokens), name)
	if !ok {
		return domain.Distribution{}, fmt.Errorf("unknown distribution preset %q: %w", name, domain.ErrConfiguration)
	}
	return d, nil
}

func distributionsCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "distributions",
		Usage: "print the preset distributions and the current one for a snapshot",
		Flags: []cli.Flag{
			snapshotFlag(cfg),
			fetchPricesFlag(),
		},
		Action: func(c *cli.Context) error {
			raw, err := loadTokens(c, cfg)
			if err != nil {
				return err
			}
			tokens, err := plan.Prepare(raw)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, map[string]any{
				"presets": distribution.Presets(tokens),
				"current": distribution.Current(tokens),
			})
		},
	}
}

// printTable writes one line per order with display-rounded amounts.
func printTable(w io.Writer, rec plan.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTYPE\tFROM\tTO\tAMOUNT\tVALUE USD")
	for i, o := range rec.Orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, o.OrderType, o.FromToken.Symbol, o.ToToken.Symbol,
			domain.FormatDisplay(o.SendAmount.InexactFloat64()),
			domain.FormatDisplay(o.SendValue().InexactFloat64()))
	}
	fmt.Fprintf(tw, "\ttotal\t\t\t\t%s\n", domain.FormatDisplay(rec.TotalValue.InexactFloat64()))
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
