package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/bdobrica/kioku/common/version"
	"github.com/bdobrica/kioku/internal/kioku/config"
	"github.com/bdobrica/kioku/internal/kioku/memory"
	"github.com/bdobrica/kioku/internal/kioku/observability"
)

func main() {
	fmt.Printf("kioku conversational memory\n")
	fmt.Printf("Version: %s (%s, %s)\n\n", version.Version, version.GitCommit, version.BuildTime)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.Default()

	var store memory.Store
	if cfg.DBPath != "" {
		store, err = memory.NewSQLiteStore(cfg.DBPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		store = memory.NewMemoryStore()
		logger.Warn("no KIOKU_DB_PATH configured, conversations will not survive a restart")
	}
	defer store.Close()

	var completion memory.CompletionClient
	if cfg.LLM.APIKey != "" {
		completion = memory.NewOpenAICompletion(memory.CompletionConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
	} else {
		logger.Warn("no KIOKU_LLM_API_KEY configured, summaries will use the deterministic fallback")
	}

	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		metrics = observability.NewMetrics("kioku", nil)
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, observability.Handler()); err != nil {
				logger.Error("metrics listener stopped", "err", err)
			}
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	mem, err := memory.New(memory.Config{
		Store:      store,
		Summarizer: memory.NewLLMSummarizer(completion, logger),
		Interface:  cfg.Interface,
		Options:    cfg.Options,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conversationID, err := mem.EnsureConversationForRoom(ctx, cfg.RoomID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("room %s -> conversation %s\n", cfg.RoomID, conversationID)
	fmt.Println("type a message, or /history /tiers /force /recent /quit")

	if err := repl(ctx, mem, completion); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Drain in-flight compaction before the store closes.
	mem.Wait()
}

func repl(ctx context.Context, mem *memory.Memory, completion memory.CompletionClient) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit":
			return nil
		case "/history":
			fmt.Println(mem.FormatHistoryForPrompt(ctx))
			continue
		case "/tiers":
			tiers, err := mem.TieredHistory(ctx, 0)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("active=%d summaries=%d archived=%d\n",
				len(tiers.ActiveTurns), len(tiers.Summaries), len(tiers.ArchivedTurns))
			continue
		case "/force":
			if err := mem.ForceSummarize(ctx); err != nil {
				fmt.Printf("error: %v\n", err)
			}
			continue
		case "/recent":
			convs, err := mem.RecentConversations(ctx, memory.RecentQuery{Limit: 10})
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			for _, c := range convs {
				fmt.Printf("%s  %s  (%d active turns, updated %s)\n",
					c.ID, c.RoomID, len(c.ActiveTurns), c.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			continue
		}

		response := respond(ctx, mem, completion, line)
		fmt.Println(response)

		if _, err := mem.AddTurn(ctx, line, response, memory.TurnOptions{}); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

const assistantSystemPrompt = "You are a helpful assistant. Answer the user's latest message, " +
	"using the conversation history for context."

// respond produces the assistant side of the turn: the completion backend
// when configured, a canned acknowledgement otherwise.
func respond(ctx context.Context, mem *memory.Memory, completion memory.CompletionClient, query string) string {
	if completion == nil {
		return "Noted."
	}

	prompt := query
	if history := mem.FormatHistoryForPrompt(ctx); history != "" {
		prompt = history + "\n\n" + query
	}
	response, err := completion.Complete(ctx, assistantSystemPrompt, prompt)
	if err != nil || response == "" {
		slog.Warn("completion backend failed, replying with acknowledgement", "err", err)
		return "Noted."
	}
	return response
}
