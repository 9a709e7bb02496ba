package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/components/countries"
	"github.com/goliatone/go-formflow/pkg/config"
	"github.com/goliatone/go-formflow/pkg/metrics"
	"github.com/goliatone/go-formflow/pkg/render"
)

var (
	serveAddr string
	listQuery string
	listLimit int
)

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "Country reference data",
}

var countriesServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the country list and metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runCountriesServe,
}

var countriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the built-in country list",
	Args:  cobra.NoArgs,
	RunE:  runCountriesList,
}

func init() {
	countriesServeCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	countriesListCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Filter by name or code")
	countriesListCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of countries (0 uses the default)")
	countriesCmd.AddCommand(countriesServeCmd, countriesListCmd)
}

// newServeMux mounts the countries component and the metrics endpoint.
func newServeMux(server config.Server, log *zap.Logger) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	component := countries.New()
	route, err := component.RegisterRoutes(mux, server.BasePath)
	if err != nil {
		return nil, fmt.Errorf("mount countries: %w", err)
	}
	mux.Handle(server.MetricsPath, metrics.Handler())
	log.Info("routes mounted",
		zap.String("countries", route),
		zap.String("metrics", server.MetricsPath),
	)
	return mux, nil
}

func runCountriesServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := cfg.Server
	if serveAddr != "" {
		server.Addr = serveAddr
	}
	mux, err := newServeMux(server, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func runCountriesList(cmd *cobra.Command, _ []string) error {
	component := countries.New()
	list, err := component.List()
	if err != nil {
		return err
	}
	list = countries.Search(list, listQuery, listLimit, component.Options())

	engine, err := render.New()
	if err != nil {
		return err
	}
	text, err := engine.Countries(list)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
