package cli

import (
	"fmt"

	"github.com/mselway/courtier/internal/action"
	"github.com/spf13/cobra"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the actions that would load for a session",
	Long: `List the action registry assembled from the built-in set and the
configured actions directory, after applying the disabled-action list.

Examples:
  courtier actions
  courtier actions -c config.json`,
	RunE: runActions,
}

func runActions(cmd *cobra.Command, args []string) error {
	registry := action.NewRegistry(cfg, logger)

	available := registry.Available(action.State{})
	fmt.Printf("%d actions loaded\n\n", registry.Len())
	for _, a := range available {
		fmt.Printf("  %s", a.Signature)
		if len(a.Args) > 0 {
			fmt.Print("(")
			for i, arg := range a.Args {
				if i > 0 {
					fmt.Print(", ")
				}
				fmt.Printf("%s %s", arg.Name, arg.Type)
			}
			fmt.Print(")")
		}
		fmt.Printf("\n    approval: %s\n    %s\n", cfg.ApprovalFor(a.Signature), a.Description)
	}
	return nil
}
