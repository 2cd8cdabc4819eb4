package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tickethive/internal/services"
)

// newReconcileCmd lets an operator re-run reconciliation for a session, for
// example after the purchaser closed the browser before the redirect landed.
func newReconcileCmd(reconciler func() *services.ReconcileService) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <sessionId>",
		Short: "Confirm a checkout session with the payment gateway and apply it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := reconciler()
			if svc == nil {
				return errors.New("app is not bootstrapped")
			}

			res, err := svc.Reconcile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", args[0], err)
			}

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
