package main

import (
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/config"
	"github.com/goliatone/go-formflow/pkg/contract"
	"github.com/goliatone/go-formflow/pkg/metrics"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/session"
)

// app holds the collaborators shared by every form command. One session
// guard is shared so a single expired token logs out once. A process never
// signs in again after logout, so the guard is never Reset.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	out       io.Writer
	guard     *session.Guard
	users     *client.UserClient
	charts    *client.ChartClient
	countries *client.CountryClient
	locator   *client.IPLocator
	summaries *render.Engine
	recorder  metrics.Recorder

	loggedOut atomic.Bool
}

func newApp(cfg config.Config, logger *zap.Logger, out io.Writer) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	doc, err := contract.Default()
	if err != nil {
		return nil, fmt.Errorf("load api contract: %w", err)
	}
	summaries, err := render.New()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		out:       out,
		summaries: summaries,
	}
	a.guard = session.NewGuard(a.logout,
		session.WithLogger(logger),
		session.WithObserver(a.recorder),
	)

	opts := []client.Option{
		client.WithTimeout(cfg.API.Timeout),
		client.WithTokenSource(a.token),
		client.WithContract(doc),
		client.WithLogger(logger),
	}
	a.users = client.NewUserClient(cfg.API.UsersURL, opts...)
	a.charts = client.NewChartClient(cfg.API.ChartsURL, opts...)
	a.countries = client.NewCountryClient(cfg.API.CountriesURL,
		client.WithTimeout(cfg.API.Timeout),
		client.WithContract(doc),
		client.WithLogger(logger),
	)
	a.locator = client.NewIPLocator(cfg.Location.GeoURL, cfg.Location.Timeout, client.WithLogger(logger))
	return a, nil
}

// token is empty once the session ended so later calls go out unauthenticated.
func (a *app) token() string {
	if a.loggedOut.Load() {
		return ""
	}
	return a.cfg.API.Token
}

func (a *app) logout() {
	a.loggedOut.Store(true)
	a.logger.Warn("session ended, credentials dropped")
	fmt.Fprintln(a.out, "Your session has ended. Set a fresh token to continue.")
}

func (a *app) runner(driver tui.PromptDriver) (*tui.Runner, error) {
	return tui.New(
		tui.WithPromptDriver(driver),
		tui.WithOutput(a.out),
		tui.WithTheme(tui.Theme{ErrorPrefix: "✗ ", InfoPrefix: ""}),
		tui.WithChartFormatter(a.summaries.Chart),
		tui.WithProfileFormatter(a.summaries.ProfileBanner),
		tui.WithLogger(a.logger),
	)
}
