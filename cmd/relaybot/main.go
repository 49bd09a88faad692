package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tzefoong/relaybot/internal/profile"
	"github.com/tzefoong/relaybot/server"
	"github.com/tzefoong/relaybot/server/relay"
	"github.com/tzefoong/relaybot/store"
	"github.com/tzefoong/relaybot/store/db"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "relaybot",
		Short: "Message relay bot with token-budgeted LLM replies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")

	previewCmd := &cobra.Command{
		Use:   "preview [message]",
		Short: "Run one message through the pipeline without persisting anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, _ := cmd.Flags().GetBool("group")
			chatID, _ := cmd.Flags().GetString("chat")
			sender, _ := cmd.Flags().GetString("sender")
			return runPreview(cmd.Context(), args[0], chatID, sender, group)
		},
	}
	previewCmd.Flags().String("chat", "preview", "conversation identifier")
	previewCmd.Flags().String("sender", "operator", "sender label")
	previewCmd.Flags().Bool("group", false, "treat the conversation as a group chat")

	benchmarkCmd := &cobra.Command{
		Use:   "benchmark [prompt]",
		Short: "Measure backend latency and token throughput without persisting anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, _ := cmd.Flags().GetString("chat")
			model, _ := cmd.Flags().GetString("model")
			runs, _ := cmd.Flags().GetInt("runs")
			return runBenchmark(cmd.Context(), args[0], chatID, model, runs)
		},
	}
	benchmarkCmd.Flags().String("chat", "benchmark", "conversation identifier")
	benchmarkCmd.Flags().String("model", "", "override the configured model")
	benchmarkCmd.Flags().Int("runs", 1, "number of measured completions")

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Prune old group-conversation messages past the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCleanup(cmd.Context())
		},
	}

	rootCmd.AddCommand(previewCmd, benchmarkCmd, cleanupCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*profile.Profile, *store.Store, *slog.Logger, error) {
	p, err := profile.Load(configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, nil, nil, err
	}
	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	return p, st, logger, nil
}

func runServe(ctx context.Context) error {
	p, st, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := server.New(p, st, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(ctx); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func runPreview(ctx context.Context, text, chatID, sender string, group bool) error {
	p, st, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	pipeline, err := relay.NewPipeline(p, st, logger)
	if err != nil {
		return err
	}

	reply, err := pipeline.HandleMessage(ctx, &relay.Event{
		ChatID:      chatID,
		Group:       group,
		SenderID:    sender,
		SenderLabel: sender,
		Text:        text,
		Preview:     true,
	})
	if err != nil {
		return err
	}

	fmt.Println(reply.Text)
	fmt.Fprintf(os.Stderr, "model=%s tokens=%d retained=%d dropped=%d duration_ms=%d\n",
		reply.Model, reply.TotalTokens, reply.Retained, reply.Dropped, reply.DurationMs)
	return nil
}

func runBenchmark(ctx context.Context, prompt, chatID, model string, runs int) error {
	p, st, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if model != "" {
		p.Model = model
	}

	pipeline, err := relay.NewPipeline(p, st, logger)
	if err != nil {
		return err
	}

	results, err := pipeline.Benchmark(ctx, &relay.Event{
		ChatID:      chatID,
		SenderID:    "benchmark",
		SenderLabel: "benchmark",
		Text:        prompt,
	}, runs)
	if err != nil {
		return err
	}

	var totalLatency time.Duration
	var totalTokens int
	for i, r := range results {
		fmt.Printf("run %d: latency=%.2fms prompt_tokens=%d completion_tokens=%d chars=%d throughput=%.2f tok/s\n",
			i+1, float64(r.Latency.Microseconds())/1000, r.PromptTokens, r.CompletionTokens,
			r.ResponseChars, r.TokensPerSecond())
		totalLatency += r.Latency
		totalTokens += r.TotalTokens
	}
	fmt.Printf("model=%s runs=%d avg_latency=%.2fms total_tokens=%d\n",
		p.Model, len(results), float64(totalLatency.Microseconds())/1000/float64(len(results)), totalTokens)
	return nil
}

func runCleanup(ctx context.Context) error {
	p, st, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	pipeline, err := relay.NewPipeline(p, st, logger)
	if err != nil {
		return err
	}

	pruned, err := pipeline.Cleanup(ctx)
	if err != nil {
		return err
	}
	logger.Info("cleanup finished", "pruned", pruned)
	return nil
}
