package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/mselway/courtier/internal/agent"
	"github.com/mselway/courtier/internal/llm"
	"github.com/spf13/cobra"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Probe the completion provider and the agent service",
	Long: `Probe the configured completion provider with a one-token request and
report whether the model's context limit is known. If external agents are
enabled, the agent service health endpoint is probed too.`,
	RunE: runTestConnection,
}

func runTestConnection(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := llm.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create completion client: %w", err)
	}

	status := client.TestConnection(ctx)
	if status.OK {
		fmt.Printf("✓ %s reachable (model %s)\n", cfg.Provider, cfg.Model)
	} else {
		fmt.Printf("✗ %s unreachable: %v\n", cfg.Provider, status.Err)
	}
	if status.ContextLimitKnown {
		fmt.Printf("  context limit: %d tokens\n", client.ContextLimit())
	} else {
		fmt.Println("  context limit unknown — resummarization disabled until context_limit_override is set")
	}

	if cfg.AgentsEnabled {
		svc := agent.NewClient(cfg.AgentServiceURL, cfg.AgentServiceToken)
		if err := svc.Health(ctx); err != nil {
			fmt.Printf("✗ agent service: %v\n", err)
		} else {
			fmt.Printf("✓ agent service reachable at %s\n", cfg.AgentServiceURL)
		}
	}

	if !status.OK {
		return fmt.Errorf("provider probe failed")
	}
	return nil
}
