package cmd

import (
	"fmt"

	"github.com/bnema/fundcrawl/internal/application"
	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/spf13/cobra"
)

func newItemsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Manage the fund pages a visit session works through",
	}

	cmd.AddCommand(
		newItemsListCmd(app),
		newItemsAddCmd(app),
		newItemsRemoveCmd(app),
	)

	return cmd
}

func newItemsListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured work items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := app.service.ListWorkItems(cmd.Context())
			if err != nil {
				return err
			}

			if len(items) == 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no work items in %s\n", app.repo.Path())
				return nil
			}

			for _, item := range items {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", item.OrderbookID, item.ISIN, item.Name, item.URL)
			}

			return nil
		},
	}
}

func newItemsAddCmd(app *app) *cobra.Command {
	var add application.AddWorkItemCommand

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a work item, replacing one with the same order-book id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			item, err := app.service.AddWorkItem(cmd.Context(), add)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved work item %s\n", item.Ref())
			return nil
		},
	}

	cmd.Flags().StringVar(&add.OrderbookID, "id", "", "Order-book id of the fund")
	cmd.Flags().StringVar(&add.URL, "url", "", "Page to visit")
	cmd.Flags().StringVar(&add.ISIN, "isin", "", "ISIN of the fund")
	cmd.Flags().StringVar(&add.Name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func newItemsRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := domain.ItemRef(args[0])
			if err := app.service.RemoveWorkItem(cmd.Context(), application.RemoveWorkItemCommand{Ref: ref}); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed work item %s\n", ref)
			return nil
		},
	}
}
