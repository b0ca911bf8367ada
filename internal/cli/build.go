package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/tinyutterances/internal/adapter/driving/web"
	"github.com/ericfisherdev/tinyutterances/internal/application"
	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generate a static blog from labelled GitHub issues",
	Long: `Generate a static blog from the open issues of a repository that carry the
site label. Each article page embeds its issue's comments widget, already
filled in. The output directory is removed and recreated.

Example:
  tinyutterances build --owner acme --repo blog -o public`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("output", "o", "site", "output directory")
	buildCmd.Flags().String("owner", "", "repository owner (overrides TINYUTTERANCES_SITE_OWNER)")
	buildCmd.Flags().String("repo", "", "repository name (overrides TINYUTTERANCES_SITE_REPO)")
	buildCmd.Flags().String("label", "", "issue label to publish (overrides TINYUTTERANCES_SITE_LABEL)")
	buildCmd.Flags().String("title", "", "site title (overrides TINYUTTERANCES_SITE_TITLE)")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	site := a.cfg.Site
	for flag, dst := range map[string]*string{
		"owner": &site.Owner,
		"repo":  &site.Repo,
		"label": &site.Label,
		"title": &site.Title,
	} {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetString(flag)
		}
	}
	a.cfg.Site = site

	if err := a.cfg.ValidateSite(); err != nil {
		return err
	}

	stylesheet, err := web.Stylesheet()
	if err != nil {
		return fmt.Errorf("loading stylesheet: %w", err)
	}

	builder := application.NewSiteBuilder(
		a.github,
		a.widgets,
		a.renderer,
		site,
		map[string][]byte{web.StylesheetName: stylesheet},
		a.logger,
	)

	outDir, _ := cmd.Flags().GetString("output")
	result, err := builder.Build(ctx, outDir)
	if err != nil {
		return err
	}

	failed := 0
	for _, report := range result.Reports {
		failed += report.Count(model.ContainerFailed)
	}
	if failed > 0 {
		a.logger.Warn("some articles were built without comments", "articles", failed)
	}

	return nil
}
