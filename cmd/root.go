package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fundcrawl",
		Short:         "fundcrawl: paced crawl sessions over fund pages",
		Long:          "fundcrawl visits a list of fund pages, or pages through a fund listing, on a randomized human-looking schedule and records what each visit captured.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newItemsCmd(app),
		newPlanCmd(app),
		newCrawlCmd(app),
		newVisitsCmd(app),
	)

	return rootCmd
}
