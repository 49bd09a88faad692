package relay

import (
	"context"
	"time"
)

// BenchmarkRun is the measurement of one preview-mode completion.
type BenchmarkRun struct {
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ResponseChars    int
}

// TokensPerSecond is the completion throughput of the run.
func (r BenchmarkRun) TokensPerSecond() float64 {
	if r.Latency <= 0 {
		return 0
	}
	return float64(r.CompletionTokens) / r.Latency.Seconds()
}

// Benchmark sends the event through the pipeline runs times in preview mode
// and measures latency and token usage per run. Nothing is read from or
// written to history. Stops at the first failed run.
func (p *Pipeline) Benchmark(ctx context.Context, event *Event, runs int) ([]BenchmarkRun, error) {
	if runs <= 0 {
		runs = 1
	}

	results := make([]BenchmarkRun, 0, runs)
	for i := 0; i < runs; i++ {
		ev := *event
		ev.Preview = true

		start := time.Now()
		reply, err := p.HandleMessage(ctx, &ev)
		if err != nil {
			return results, err
		}

		results = append(results, BenchmarkRun{
			Latency:          time.Since(start),
			PromptTokens:     reply.PromptTokens,
			CompletionTokens: reply.CompletionTokens,
			TotalTokens:      reply.TotalTokens,
			ResponseChars:    len(reply.Text),
		})
	}
	return results, nil
}
