package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzefoong/relaybot/internal/errkit"
	"github.com/tzefoong/relaybot/llm"
)

func TestPipeline_Benchmark(t *testing.T) {
	ctx := context.Background()

	t.Run("MeasuresEveryRun", func(t *testing.T) {
		fake := &fakeProvider{model: "gpt-4o-mini", completeFn: echoCompletion}
		pipeline, st := newTestPipeline(t, testProfile(), fake)

		results, err := pipeline.Benchmark(ctx, &Event{
			ChatID:   "bench-1",
			SenderID: "operator",
			Text:     "how fast are you?",
		}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, 3, fake.calls)

		for _, r := range results {
			assert.Greater(t, r.Latency, time.Duration(0))
			assert.Equal(t, 50, r.PromptTokens)
			assert.Equal(t, 10, r.CompletionTokens)
			assert.Equal(t, 60, r.TotalTokens)
			assert.Greater(t, r.ResponseChars, 0)
		}

		// Benchmark runs are preview runs and leave no history behind.
		count, err := st.CountMessages(ctx, "bench-1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("NonPositiveRunsMeansOne", func(t *testing.T) {
		fake := &fakeProvider{model: "gpt-4o-mini", completeFn: echoCompletion}
		pipeline, _ := newTestPipeline(t, testProfile(), fake)

		results, err := pipeline.Benchmark(ctx, &Event{
			ChatID:   "bench-2",
			SenderID: "operator",
			Text:     "once",
		}, 0)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("StopsOnFirstFailure", func(t *testing.T) {
		fake := &fakeProvider{
			model: "gpt-4o-mini",
			completeFn: func(context.Context, string, []llm.WireMessage) (*llm.Completion, error) {
				return nil, errkit.BackendRateLimited("backend throttled request", nil)
			},
		}
		pipeline, _ := newTestPipeline(t, testProfile(), fake)

		results, err := pipeline.Benchmark(ctx, &Event{
			ChatID:   "bench-3",
			SenderID: "operator",
			Text:     "doomed",
		}, 5)
		require.Error(t, err)
		assert.True(t, errkit.IsCode(err, errkit.CodeBackendRateLimited))
		assert.Empty(t, results)
		assert.Equal(t, 1, fake.calls)
	})
}

func TestBenchmarkRun_TokensPerSecond(t *testing.T) {
	r := BenchmarkRun{Latency: 500 * time.Millisecond, CompletionTokens: 100}
	assert.InDelta(t, 200.0, r.TokensPerSecond(), 0.001)

	assert.Zero(t, BenchmarkRun{CompletionTokens: 100}.TokensPerSecond())
}
