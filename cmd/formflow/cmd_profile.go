package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/profile"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the signed-in user's profile",
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit and save the current profile",
	Long: `Loads the current user and the country list, prompts for each editable
field and saves the changes. Accounts signed in through an external identity
provider keep their email address.`,
	Args: cobra.NoArgs,
	RunE: runProfileEdit,
}

func init() {
	profileCmd.AddCommand(profileEditCmd)
}

func runProfileEdit(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return editProfile(ctx, a, nil)
}

// editProfile is split out so tests can script the prompts.
func editProfile(ctx context.Context, a *app, driver tui.PromptDriver) error {
	c := profile.New(a.users,
		profile.WithCountryService(a.countries),
		profile.WithSessionGuard(a.guard),
		profile.WithLogger(a.logger),
		profile.WithRecorder(a.recorder),
		profile.WithCompletion(func() {
			a.logger.Info("profile saved")
		}),
	)
	defer c.Close()

	if err := c.Mount(ctx); err != nil {
		a.logger.Error("mount profile", zap.Error(err))
		return err
	}

	runner, err := a.runner(driver)
	if err != nil {
		return err
	}
	_, err = runner.EditProfile(ctx, c)
	return err
}
