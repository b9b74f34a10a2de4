package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const githubRepoSlug = "xcmcp/xcmcp"

var errDevelopmentVersion = errors.New("cannot self-update a development version; install a release build first")

type selfUpdateOptions struct {
	check bool
}

func newSelfUpdateCmd() *cobra.Command {
	opts := &selfUpdateOptions{}
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update xcmcp to the latest release",
		Long: `Checks GitHub for the latest xcmcp release and replaces the running
binary when a newer version exists. Use --check to only report whether an
update is available.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfUpdate(cmd.Context(), cmd.OutOrStdout(), rootCmd.Version, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.check, "check", false, "Only check for a newer release")
	return cmd
}

// isDevelopmentVersion reports versions that were not produced by a release build.
func isDevelopmentVersion(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "dev" || v == "(devel)" || strings.HasSuffix(v, "-dirty")
}

func runSelfUpdate(ctx context.Context, out io.Writer, current string, opts *selfUpdateOptions) error {
	if isDevelopmentVersion(current) {
		return errDevelopmentVersion
	}
	if ctx == nil {
		ctx = context.Background()
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(githubRepoSlug))
	if err != nil {
		return fmt.Errorf("error detecting latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest release for %s could not be found", githubRepoSlug)
	}

	if latest.LessOrEqual(current) {
		fmt.Fprintf(out, "xcmcp %s is the latest release.\n", current)
		return nil
	}
	if opts.check {
		fmt.Fprintf(out, "xcmcp %s is available (current: %s). Run `xcmcp self-update` to install it.\n", latest.Version(), current)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	fmt.Fprintf(out, "Updating xcmcp from %s to %s...\n", current, latest.Version())
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("no permission to replace %s; re-run with sufficient rights: %w", exe, err)
		}
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	fmt.Fprintf(out, "Updated to xcmcp %s\n", latest.Version())
	return nil
}
