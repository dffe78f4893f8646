package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ordinario/contahub-app-sheets/httpd"
	"github.com/ordinario/contahub-app-sheets/log"
)

const shutdownTimeout = 15 * time.Second

type Serve struct {
	port int
}

func ServeCmd(options *Options) *cobra.Command {
	serve := Serve{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API",
		Long: `Runs the HTTP API. POST /execute (with an 'Authorization: Bearer <API key>' header)
retrieves the configured ContaHub reports and appends them to the Google Sheets spreadsheet.`,
		Example: `  contahub-app-sheets --config contahub-app-sheets.toml serve --port 8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve.Execute(cmd.Context(), options)
		},
	}

	cmd.Flags().IntVar(&serve.port, "port", 0, "HTTP port (defaults to the configured port or $PORT)")

	return cmd
}

func (s *Serve) Execute(ctx context.Context, options *Options) error {
	conf, err := configure(options)
	if err != nil {
		return err
	}

	if conf.Server.APIKey == "" {
		return fmt.Errorf("missing API key (API_KEY)")
	}

	reporting, err := initSentry(conf)
	if err != nil {
		return err
	}
	defer flushSentry()

	p, authenticator, err := newPipeline(conf)
	if err != nil {
		return err
	}

	port := conf.Server.Port
	if s.port > 0 {
		port = s.port
	}

	server := httpd.Server{
		APIKey:    conf.Server.APIKey,
		Runner:    &monitored{pipeline: p, enabled: reporting},
		Diagnoser: authenticator,
		Info:      info(conf),
		Sentry:    reporting,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("%-10v listening on %v (modules %v, period %v)", "serve", srv.Addr, conf.Report.Modules, p.Dates)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		log.Infof("%-10v shutting down", "serve")

		shutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdown)
	})

	return g.Wait()
}
