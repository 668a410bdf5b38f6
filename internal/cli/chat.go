package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mselway/courtier/internal/action"
	"github.com/mselway/courtier/internal/agent"
	"github.com/mselway/courtier/internal/conversation"
	"github.com/mselway/courtier/internal/feed"
	"github.com/mselway/courtier/internal/game"
	"github.com/mselway/courtier/internal/llm"
	"github.com/mselway/courtier/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	snapshotPath string
	scriptPath   string
	primaryID    int32
	saveID       string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive conversation session",
	Long: `Run an interactive conversation against a game-state snapshot.

Reads player turns from stdin and generates replies for the primary
interlocutor. Slash commands inside the session:

  /round id1,id2,...   generate one turn per listed participant
  /talk                generate a self-talk turn for the player
  /stats               print operation metrics
  /end                 summarize, persist and close the session

Examples:
  courtier chat --data snapshot.json --script court.yaml --primary 512
  courtier chat -c config.json --data snapshot.json --script court.yaml --primary 512 --save ironman3`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&snapshotPath, "data", "", "game-state snapshot JSON (required)")
	chatCmd.Flags().StringVar(&scriptPath, "script", "", "conversation script YAML (required)")
	chatCmd.Flags().Int32Var(&primaryID, "primary", 0, "primary interlocutor id (required)")
	chatCmd.Flags().StringVar(&saveID, "save", "default", "save identifier for agent mappings")
	chatCmd.MarkFlagRequired("data")
	chatCmd.MarkFlagRequired("script")
	chatCmd.MarkFlagRequired("primary")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	data, err := game.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	script, err := conversation.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	primary, ok := data.Roster.Get(primaryID)
	if !ok {
		return fmt.Errorf("primary participant %d not in snapshot", primaryID)
	}

	client, err := llm.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create completion client: %w", err)
	}
	var summarizer llm.Client = client
	if cfg.SummarizationModel != "" && cfg.SummarizationModel != cfg.Model {
		sumCfg := cfg
		sumCfg.Model = cfg.SummarizationModel
		sc, err := llm.New(ctx, sumCfg, logger)
		if err != nil {
			return fmt.Errorf("create summarization client: %w", err)
		}
		summarizer = sc
	}

	sink := game.NewRunFileManager(cfg.RunFilePath, time.Duration(cfg.RunFileClearDelayMs)*time.Millisecond, logger)
	registry := action.NewRegistry(cfg, logger)
	pipeline := action.NewPipeline(registry, cfg, sink, logger)
	store := conversation.NewStore(cfg.UserDataDir)
	collector := metrics.NewCollector()

	var router *agent.Router
	if cfg.AgentsEnabled {
		svc := agent.NewClient(cfg.AgentServiceURL, cfg.AgentServiceToken)
		mappings, err := agent.LoadMappings(cfg.UserDataDir, saveID)
		if err != nil {
			return err
		}
		transformer := agent.NewTransformer(client, cfg.FirstPersonNarrative, logger)
		batcher := agent.NewBatcher(cfg, svc, transformer, collector, logger)
		defer batcher.Stop()
		router = agent.NewRouter(true, svc, mappings, batcher, logger)

		if cfg.FeedURL != "" {
			go func() {
				if err := feed.New(cfg.FeedURL, router, logger).Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("event feed stopped", "error", err)
				}
			}()
		}
	}

	deps := conversation.Dependencies{
		Client:     client,
		Summarizer: summarizer,
		Store:      store,
		Pipeline:   pipeline,
		Router:     router,
		Sink:       sink,
		Metrics:    collector,
		Logger:     logger,
	}
	engine, err := conversation.NewEngine(ctx, cfg, deps, data, script, primaryID)
	if err != nil {
		return err
	}

	initiator, _ := data.Initiator()
	fmt.Printf("Session started: %s speaking with %s (%s, %s)\n",
		initiator.ShortName, primary.ShortName, data.Scene, data.Date)
	fmt.Println("Type a message, or /end to finish.")

	if cfg.Stream {
		engine.SetChunkRelay(func(_ int32, chunk string) { fmt.Print(chunk) })
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Printf("\n%s> ", initiator.ShortName)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/end":
			if err := engine.EndSession(ctx); err != nil {
				return err
			}
			fmt.Println("Session ended.")
			return scanner.Err()

		case line == "/stats":
			printStats(collector)
			continue

		case line == "/talk":
			turn, err := engine.GenerateTurn(ctx, initiator.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			printTurn(turn)
			continue

		case strings.HasPrefix(line, "/round "):
			ids, err := parseIDList(strings.TrimPrefix(line, "/round "))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			turns, errs := engine.GenerateRound(ctx, ids)
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "Error: %v\n", e)
			}
			for _, t := range turns {
				printTurn(t)
			}
			continue
		}

		if err := engine.PushUserTurn(line); err != nil {
			return err
		}
		turn, err := engine.GenerateTurn(ctx, primaryID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		printTurn(turn)

		if pending := turn.Actions.Pending(); len(pending) > 0 {
			confirmActions(pipeline, scanner, pending, data, primary, initiator)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Stdin closed without /end; persist what we have.
	return engine.EndSession(ctx)
}

func printTurn(t conversation.Turn) {
	if t.Message == nil {
		return
	}
	if !cfg.Stream {
		fmt.Printf("%s: %s\n", t.Message.Name, t.Message.Content)
	} else {
		// Chunks already printed through the relay.
		fmt.Println()
	}
	for _, ce := range t.Actions.Errors {
		fmt.Fprintf(os.Stderr, "  action %s: %v\n", ce.Name, ce.Err)
	}
	for _, c := range t.Actions.Calls {
		if c.Status == action.StatusExecuted {
			fmt.Printf("  [%s executed]\n", c.Name)
		}
	}
}

func confirmActions(pipeline *action.Pipeline, scanner *bufio.Scanner, pending []*action.ToolCall, data *game.Data, primary, initiator game.Character) {
	st := action.State{Data: data, Actor: primary, Initiator: initiator}
	for _, tc := range pending {
		fmt.Printf("  approve %s%v? [y/N] ", tc.Name, tc.Params)
		if !scanner.Scan() {
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer == "y" || answer == "yes" {
			if err := pipeline.Approve(tc, st); err != nil {
				fmt.Fprintf(os.Stderr, "  action %s: %v\n", tc.Name, err)
			} else {
				fmt.Printf("  [%s executed]\n", tc.Name)
			}
		} else {
			if err := pipeline.Reject(tc); err != nil {
				fmt.Fprintf(os.Stderr, "  action %s: %v\n", tc.Name, err)
			}
		}
	}
}

func printStats(c *metrics.Collector) {
	snap := c.Snapshot()
	fmt.Printf("uptime: %.0fs\n", snap.UptimeSeconds)
	for op, m := range snap.Operations {
		fmt.Printf("  %-16s count=%d avg=%.0fms tokens in/out=%d/%d\n",
			op, m.Count, m.AvgTimeMs, m.TotalInputTokens, m.TotalOutputTokens)
	}
}

func parseIDList(s string) ([]int32, error) {
	var ids []int32
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var id int32
		if _, err := fmt.Sscanf(part, "%d", &id); err != nil {
			return nil, fmt.Errorf("bad participant id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no participant ids given")
	}
	return ids, nil
}
