package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/slav123/ews-mtgs-conformance/ewstest"
	"github.com/slav123/ews-mtgs-conformance/internal/config"
	"github.com/slav123/ews-mtgs-conformance/internal/scenario"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

func newApp() *cli.Command {
	logger := logrus.New()
	log := logrus.NewEntry(logger)

	return &cli.Command{
		Name:  "ews-mtgs-conformance",
		Usage: "check an Exchange server's calendar CopyItem and MoveItem behaviour",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "logrus level: debug, info, warn or error",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "text or json",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if err := setupLogger(logger, cmd.String("log-level"), cmd.String("log-format")); err != nil {
				return ctx, err
			}
			if _, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
				return ctx, fmt.Errorf("error setting GOMAXPROCS %w", err)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			runCommand(log),
			listCommand(),
			serveCommand(log),
		},
	}
}

func setupLogger(logger *logrus.Logger, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("error parsing log level: %w", err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func runCommand(log *logrus.Entry) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run scenarios against the configured server",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "scenario",
				Aliases: []string{"s"},
				Usage:   "scenario id or glob, e.g. S03_* (repeatable; default all)",
			},
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "property file in .env syntax, read before the environment",
				Sources: cli.EnvVars("EWS_ENV_FILE"),
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "write a JSON report to this path",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("env-file"))
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			scenarios, err := scenario.Select(cmd.StringSlice("scenario")...)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{"url": cfg.URL, "scenarios": len(scenarios)}).Info("starting run")
			report := scenario.NewRunner(cfg, log).RunAll(ctx, scenarios)

			printReport(cmd.Root().Writer, report)

			if path := cmd.String("report"); path != "" {
				if err := writeReport(path, report); err != nil {
					return err
				}
			}

			if !report.OK() {
				return cli.Exit(fmt.Sprintf("%d of %d scenarios failed", report.Failed, len(report.Scenarios)), 1)
			}
			return ctx.Err()
		},
	}
}

func printReport(w io.Writer, report scenario.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, res := range report.Scenarios {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", status, res.Scenario, res.Elapsed)
		if res.Error != "" {
			fmt.Fprintf(tw, "\t  %s\t\n", res.Error)
		}
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d passed, %d failed; requirements: %d verified, %d failed\n",
		report.Passed, report.Failed, len(report.Summary.Verified), len(report.Summary.Failed))
	for _, name := range report.Summary.Failed {
		fmt.Fprintf(w, "  not verified: %s\n", name)
	}
}

func writeReport(path string, report scenario.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating report: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list the scenarios",
		Action: func(_ context.Context, cmd *cli.Command) error {
			tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
			for _, sc := range scenario.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", sc.ID, sc.Title, sc.Description)
			}
			return tw.Flush()
		},
	}
}

func serveCommand(log *logrus.Entry) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve a simulated Exchange for local runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "127.0.0.1:8080",
				Usage: "listen address; the endpoint path is not checked",
			},
			&cli.DurationFlag{
				Name:  "delivery-delay",
				Usage: "hold messages sent between mailboxes back for this long",
			},
			&cli.StringSliceFlag{
				Name:  "user",
				Usage: "register basic credentials as name:password (repeatable; none accepts anyone)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := []ewstest.Option{
				ewstest.WithDeliveryDelay(cmd.Duration("delivery-delay")),
				ewstest.WithLogger(log),
			}
			for _, u := range cmd.StringSlice("user") {
				name, password, ok := strings.Cut(u, ":")
				if !ok || name == "" {
					return fmt.Errorf("user %q is not name:password", u)
				}
				opts = append(opts, ewstest.WithUser(name, password))
			}

			srv := &http.Server{
				Addr:              cmd.String("addr"),
				Handler:           ewstest.New(opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			log.WithField("addr", srv.Addr).Info("serving simulated exchange")

			select {
			case err := <-errc:
				return fmt.Errorf("error serving: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
