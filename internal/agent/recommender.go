package agent

import (
	"context"
	"errors"
	"time"

	"book-discovery/internal/agent/deps"
	"book-discovery/internal/agent/prompt"
	"book-discovery/internal/agent/response"
	"book-discovery/internal/agent/validation"
	"book-discovery/internal/cache"
	"book-discovery/internal/logger"
	"book-discovery/internal/metrics"
	"book-discovery/internal/model"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout bounds a single recommendation call
	DefaultTimeout = 8 * time.Second
	// MaxCitations caps how many recommendations are kept from one reply
	MaxCitations = 10
)

// Options tune the completion request
type Options struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
	Timeout     time.Duration
}

// DefaultOptions returns the sampling parameters used when none are configured
func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		MaxTokens:   800,
		TopP:        0.9,
		Timeout:     DefaultTimeout,
	}
}

// Recommender asks the LLM for book recommendations, with caching.
// A nil LLM client makes every fetch fail with ErrNotConfigured.
type Recommender struct {
	llm           deps.LLMClient
	cache         deps.RecommendationCache
	promptBuilder *prompt.Builder
	pipeline      *validation.Pipeline
	opts          Options
	group         singleflight.Group
}

// NewRecommender creates a Recommender. cache may be nil to disable caching.
func NewRecommender(llm deps.LLMClient, recCache deps.RecommendationCache, opts Options) *Recommender {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Recommender{
		llm:           llm,
		cache:         recCache,
		promptBuilder: prompt.NewBuilder(),
		pipeline:      validation.DefaultPipeline(MaxCitations),
		opts:          opts,
	}
}

// Fetch returns recommendations for query. Errors are always *UpstreamError.
func (r *Recommender) Fetch(ctx context.Context, query string) (*model.Recommendation, error) {
	if r.cache != nil {
		if rec, ok := r.cache.Get(query); ok {
			logger.For(ctx).Debugf("[LLM] Cache hit for %q", query)
			return &rec, nil
		}
	}

	if r.llm == nil {
		return nil, &UpstreamError{Op: "configure", Err: ErrNotConfigured}
	}

	// Concurrent searches for the same query share one upstream call. The
	// call outlives any single caller; each caller only stops waiting.
	ch := r.group.DoChan(cache.NormalizeKey(query), func() (any, error) {
		return r.fetchUpstream(context.WithoutCancel(ctx), query)
	})

	select {
	case <-ctx.Done():
		op := "request"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			op = "timeout"
		}
		return nil, &UpstreamError{Op: op, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.For(ctx).Debugf("[LLM] Shared in-flight request for %q", query)
		}
		rec := *res.Val.(*model.Recommendation)
		return &rec, nil
	}
}

func (r *Recommender) fetchUpstream(ctx context.Context, query string) (*model.Recommendation, error) {
	log := logger.For(ctx).WithField("model", r.llm.Model())
	defer logger.Track(ctx, "[LLM] Recommendation call")()

	callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	text, err := r.llm.GenerateContent(callCtx, deps.CompletionRequest{
		SystemPrompt: r.promptBuilder.BuildSystemPrompt(),
		UserPrompt:   r.promptBuilder.BuildUserPrompt(query),
		Temperature:  r.opts.Temperature,
		TopP:         r.opts.TopP,
		MaxTokens:    r.opts.MaxTokens,
	})
	if err != nil {
		op := "request"
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			op = "timeout"
			outcome = "timeout"
		}
		metrics.UpstreamRequestDuration.WithLabelValues("llm", outcome).Observe(time.Since(start).Seconds())
		if IsRateLimited(err) {
			log.Warnf("[QUOTA] LLM rate limit exceeded: %v", err)
		} else {
			log.Warnf("[LLM] %s failed: %v", op, err)
		}
		return nil, &UpstreamError{Op: op, Err: err}
	}
	metrics.UpstreamRequestDuration.WithLabelValues("llm", "ok").Observe(time.Since(start).Seconds())

	rec, err := response.Parse(text)
	if err != nil {
		log.Warnf("[LLM] Unparseable reply: %s", truncate(text, 200))
		return nil, &UpstreamError{Op: "parse", Err: err}
	}

	validated, err := r.pipeline.Validate(ctx, validation.ValidationInput{Query: query, Recommendation: rec})
	if err != nil {
		return nil, &UpstreamError{Op: "parse", Err: &response.ParseError{Raw: text, Err: err}}
	}

	log.Infof("[LLM] Received %d recommendation(s)", len(validated.Recommendations))

	if r.cache != nil {
		r.cache.Put(query, *validated)
	}
	return validated, nil
}

// ClearCache drops every cached recommendation
func (r *Recommender) ClearCache() {
	if r.cache != nil {
		r.cache.Clear()
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
