package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	usersPageSize int
	usersPage     int
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect registered users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users ordered by name",
	RunE:  runUsersList,
}

func init() {
	usersListCmd.Flags().IntVar(&usersPageSize, "page-size", 20, "Users per page")
	usersListCmd.Flags().IntVar(&usersPage, "page", 1, "Page number, starting at 1")
}

func runUsersList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	users, err := openStore()
	if err != nil {
		return err
	}
	defer users.Close()

	page, err := users.ListPage(ctx, usersPageSize, usersPage)
	if err != nil {
		return err
	}
	total, err := users.Count(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOME\tCPF\tEMAIL\tPERFIL")
	for _, u := range page {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.CPF, u.Email, u.Profile)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d users (page %d)\n", len(page), total, usersPage)
	return nil
}
