package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/allisson/ots/internal/envelope"
)

func newDeleteCmd(a *app) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "delete <link|id>",
		Short: "Delete a secret before it is read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, linkServer := args[0], ""
			if parsedID, _, err := envelope.ParseLink(args[0]); err == nil {
				id, linkServer = parsedID, linkServerURL(args[0], parsedID)
			}

			c, err := a.newClient(server, linkServer)
			if err != nil {
				return err
			}
			if err := c.DeleteSecret(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete secret: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓")+" Secret deleted")
			return nil
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "", "Override the server URL")
	return cmd
}
