package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/astro"
	"github.com/goliatone/go-formflow/pkg/location"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
)

// astroFlags are the non-interactive shortcuts of astro lookup.
type astroFlags struct {
	useLocation bool
	lat, lng    string
	mode        string
}

var astroOpts astroFlags

var astroCmd = &cobra.Command{
	Use:   "astro",
	Short: "Astrology lookups",
}

var astroLookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Compute a birth chart",
	Long: `Prompts for the date and time of birth and the calculation type, then
prints the chart. The birth place can come from the IP based locator
(--use-location) or be given directly (--lat and --lng).`,
	Args: cobra.NoArgs,
	RunE: runAstroLookup,
}

func init() {
	astroLookupCmd.Flags().BoolVar(&astroOpts.useLocation, "use-location", false, "Resolve the birth place from the current location")
	astroLookupCmd.Flags().StringVar(&astroOpts.lat, "lat", "", "Birth place latitude in decimal degrees")
	astroLookupCmd.Flags().StringVar(&astroOpts.lng, "lng", "", "Birth place longitude in decimal degrees")
	astroLookupCmd.Flags().StringVar(&astroOpts.mode, "mode", "", "Calculation type: vedic or zodiac")
	astroLookupCmd.MarkFlagsRequiredTogether("lat", "lng")
	astroLookupCmd.MarkFlagsMutuallyExclusive("use-location", "lat")
	astroCmd.AddCommand(astroLookupCmd)
}

func runAstroLookup(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return lookupChart(ctx, a, astroOpts, nil)
}

func lookupChart(ctx context.Context, a *app, flags astroFlags, driver tui.PromptDriver) error {
	c := astro.New(a.charts,
		astro.WithLocator(a.locator),
		astro.WithSessionGuard(a.guard),
		astro.WithLogger(a.logger),
		astro.WithRecorder(a.recorder),
		astro.WithLocationRecorder(a.recorder),
	)
	defer c.Close()

	if err := presetLocation(ctx, c, flags); err != nil {
		return err
	}
	if geo := c.GeoError(); geo != "" {
		fmt.Fprintln(a.out, geo)
	}

	runner, err := a.runner(driver)
	if err != nil {
		return err
	}
	_, err = runner.LookupChart(ctx, c)
	return err
}

// presetLocation applies the flags before prompting. A failed device lookup is
// not fatal: the prompts offer the map instead.
func presetLocation(ctx context.Context, c *astro.Controller, flags astroFlags) error {
	if flags.mode != "" {
		if err := c.SetMode(astro.Mode(flags.mode)); err != nil {
			return err
		}
	}
	switch {
	case flags.lat != "" || flags.lng != "":
		coord, err := location.ParseCoordinate(flags.lat, flags.lng)
		if err != nil {
			return err
		}
		if err := c.OpenMap(); err != nil {
			return err
		}
		return c.PickLocation(coord)
	case flags.useLocation:
		if _, err := c.UseCurrentLocation(ctx); err != nil {
			return err
		}
	}
	return nil
}
