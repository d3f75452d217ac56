package cmd

import (
	"errors"
	"fmt"

	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/spf13/cobra"
)

var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Grant or revoke staff privileges",
	Long: `Staff membership lives in the staff_members table and is the only source of
staff privileges. Profile data and email addresses never grant it.`,
}

var staffGrantCmd = &cobra.Command{
	Use:   "grant <user-id>...",
	Short: "Make users staff",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStaffGrant,
}

var staffRevokeCmd = &cobra.Command{
	Use:   "revoke <user-id>...",
	Short: "Remove staff privileges",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStaffRevoke,
}

func init() {
	staffCmd.AddCommand(staffGrantCmd, staffRevokeCmd)
	rootCmd.AddCommand(staffCmd)
}

func runStaffGrant(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	return grantStaff(cmd, &orders.ProfileRepo{DB: db}, args)
}

func grantStaff(cmd *cobra.Command, profiles orders.ProfileStore, userIDs []string) error {
	for _, id := range userIDs {
		if err := profiles.GrantStaff(cmd.Context(), id); err != nil {
			return fmt.Errorf("grant %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "granted staff to %s\n", id)
	}
	return nil
}

func runStaffRevoke(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	return revokeStaff(cmd, &orders.ProfileRepo{DB: db}, args)
}

func revokeStaff(cmd *cobra.Command, profiles orders.ProfileStore, userIDs []string) error {
	for _, id := range userIDs {
		err := profiles.RevokeStaff(cmd.Context(), id)
		if errors.Is(err, orders.ErrNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s was not staff\n", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("revoke %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revoked staff from %s\n", id)
	}
	return nil
}
