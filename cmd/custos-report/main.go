// Command custos-report loads the configured cost source once and prints the
// dashboard as plain text tables.
//
// Usage:
//
//	custos-report [-grupo MEC,ELE] [-tipo PM01] [-top 10] [-json]
//	custos-report -reload [-force]
//
// With -reload nothing is printed: a reload request is published on the
// configured AMQP exchange for a running server to pick up.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"custos/internal/amqp"
	"custos/internal/backend"
	"custos/internal/cli"
	"custos/internal/config"
	"custos/internal/core"
	"custos/internal/log"
	"custos/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, os.Args[1:], cfg, logger, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("Report failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, cfg *config.Config, logger *log.Logger, out io.Writer) error {
	fs := flag.NewFlagSet("custos-report", flag.ContinueOnError)
	groups := fs.String("grupo", "", "comma separated planning groups (default all)")
	types := fs.String("tipo", "", "comma separated order types (default all)")
	top := fs.Int("top", cfg.TopN, "size of every ranking")
	asJSON := fs.Bool("json", false, "print the dashboard as JSON")
	reload := fs.Bool("reload", false, "publish a reload request instead of printing")
	force := fs.Bool("force", false, "with -reload, reload even if the source is unchanged")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *reload {
		return requestReload(ctx, cfg, *force, logger)
	}

	schema, err := config.LoadSchema(cfg.ColumnsFile)
	if err != nil {
		return err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	svc := services.NewDashboardService(res.Reader, schema,
		core.Options{TopN: *top, ReportDropped: cfg.ReportDropped}, services.WithLogger(logger))
	if err := svc.Load(ctx); err != nil {
		title, guidance := core.LoadFailureMessages(svc.Source(), err)
		fmt.Fprintln(os.Stderr, strings.TrimSpace(title+" "+guidance))
		return err
	}

	selections := core.Selections{}
	if *groups != "" {
		selections[core.FieldPlanningGroup] = splitList(*groups)
	}
	if *types != "" {
		selections[core.FieldOrderType] = splitList(*types)
	}

	d, err := svc.Dashboard(selections)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	return printDashboard(out, d)
}

func requestReload(ctx context.Context, cfg *config.Config, force bool, logger *log.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for -reload")
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPEventsKey, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	host, _ := os.Hostname()
	if err := client.PublishReloadRequest(ctx, amqp.NewReloadRequest(force, "custos-report@"+host)); err != nil {
		return err
	}
	logger.Info("Reload requested", "force", force, "queue", cfg.AMQPQueue)
	return nil
}

// splitList trims every comma separated item. Blank items are dropped, so
// "-grupo ," selects nothing.
func splitList(s string) core.Selection {
	sel := core.Selection{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			sel = append(sel, item)
		}
	}
	return sel
}

func printDashboard(out io.Writer, d core.Dashboard) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Fonte:\t%s\n", d.Source)
	fmt.Fprintf(w, "Registros:\t%d de %d\n", d.Filtered, d.Records)
	for _, f := range d.Filters {
		fmt.Fprintf(w, "%s:\t%s\n", f.Label, strings.Join(f.Selected, ", "))
	}
	if d.SubtotalDisplay != "" {
		fmt.Fprintf(w, "%s:\t%s\n", d.SubtotalLabel, d.SubtotalDisplay)
	}
	for _, n := range d.Notices {
		if n.Level != core.NoticeSuccess {
			fmt.Fprintf(w, "[%s]\t%s\n", n.Level, n.Message)
		}
	}

	for _, v := range d.Views {
		fmt.Fprintf(w, "\n== %s ==\n", v.Title)
		for _, n := range v.Notices {
			fmt.Fprintf(w, "[%s]\t%s\n", n.Level, n.Message)
		}
		switch {
		case v.Chart != nil:
			fmt.Fprintf(w, "%s\t%s\n", v.Chart.CategoryLabel, v.Chart.ValueLabel)
			for _, p := range v.Chart.Points {
				fmt.Fprintf(w, "%s\t%s\n", p.Label, p.Display)
			}
		case v.Table != nil:
			fmt.Fprintln(w, strings.Join(v.Table.Headers, "\t"))
			for _, r := range v.Table.Rows {
				fmt.Fprintf(w, "%d\t%s\t%s\n", r.Position, strings.Join(r.Keys, "\t"), r.Display)
			}
		}
	}
	return w.Flush()
}
