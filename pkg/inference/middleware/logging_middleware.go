package middleware

import (
	"context"
	"time"

	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLoggingMiddleware logs agent, model and history details before and after inference.
func NewLoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
			lg := logger
			// fall back to global if uninitialized
			if lg.GetLevel() == zerolog.NoLevel {
				lg = log.Logger
			}

			lg = lg.With().
				Str("agent", req.Agent).
				Str("stage", req.Stage).
				Str("model", req.Model).
				Int("history_len", req.History.Len()).
				Logger()

			lg.Info().Msg("agent: starting inference")
			start := time.Now()

			res, err := next(ctx, req)
			if err != nil {
				lg.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("agent: inference failed")
				return res, err
			}

			// Count kinds for summary
			var numLLM, numReasoning, numOther int
			if res != nil {
				for _, b := range res.Items {
					switch b.Kind {
					case turns.BlockKindLLMText:
						numLLM++
					case turns.BlockKindReasoning:
						numReasoning++
					case turns.BlockKindUser, turns.BlockKindSystem, turns.BlockKindOther:
						numOther++
					}
				}
			}

			ev := lg.Info().
				Dur("elapsed", time.Since(start)).
				Int("llm_text_items", numLLM).
				Int("reasoning_items", numReasoning).
				Int("other_items", numOther).
				Bool("has_output", res.HasOutput())
			if res != nil && res.Usage != nil {
				ev = ev.Int("input_tokens", res.Usage.InputTokens).Int("output_tokens", res.Usage.OutputTokens)
			}
			if res != nil && res.Refusal != "" {
				ev = ev.Str("refusal", res.Refusal)
			}
			ev.Msg("agent: inference completed")
			return res, nil
		}
	}
}
