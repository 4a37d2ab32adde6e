package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/api"
	"github.com/samcharles93/fitskit/internal/logger"
	"github.com/samcharles93/fitskit/internal/reportstore"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		maxBody     int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the FITS inspection REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-body",
				Usage:       "maximum upload size in bytes",
				Value:       api.DefaultMaxBodyBytes,
				Destination: &maxBody,
			},
			&cli.StringFlag{
				Name:        "report-dir",
				Usage:       "report store directory (pebble; empty keeps reports in memory)",
				Sources:     cli.EnvVars(envReportDir),
				Destination: &reportDir,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, cfg, &addr, &maxBody)

			store, err := reportstore.Open(reportDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open report store: %v", err), 1)
			}
			defer func() { _ = store.Close() }()

			server := api.NewServer(api.Config{
				Store:        store,
				Logger:       log,
				MaxBodyBytes: maxBody,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "report_dir", reportDir, "max_body", maxBody)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					srv.Handler = server.Wrap(srv.Handler)
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
