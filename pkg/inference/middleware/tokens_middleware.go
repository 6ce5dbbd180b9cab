package middleware

import (
	"context"

	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// CountRequestTokens estimates the prompt size of req: the rendered
// instructions plus the text and structured payloads of every history item.
func CountRequestTokens(codec tokenizer.Codec, req *engine.Request) (int, error) {
	if codec == nil {
		return 0, errors.New("no tokenizer codec")
	}
	count := func(s string) (int, error) {
		if s == "" {
			return 0, nil
		}
		ids, _, err := codec.Encode(s)
		if err != nil {
			return 0, err
		}
		return len(ids), nil
	}

	total, err := count(req.Instructions)
	if err != nil {
		return 0, errors.Wrap(err, "count instruction tokens")
	}
	for _, b := range req.History.Blocks() {
		n, err := count(b.Text())
		if err != nil {
			return 0, errors.Wrapf(err, "count tokens of block %s", b.ID)
		}
		total += n
		if r, ok := b.Payload[turns.PayloadKeyRefusal].(string); ok {
			n, err := count(r)
			if err != nil {
				return 0, errors.Wrapf(err, "count tokens of block %s", b.ID)
			}
			total += n
		}
	}
	return total, nil
}

// NewTokenCountMiddleware logs the estimated prompt size of each agent call and
// warns once it exceeds warnAbove (0 disables the warning). History is never
// truncated here; growth is left to the caller.
func NewTokenCountMiddleware(codec tokenizer.Codec, warnAbove int) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
			n, err := CountRequestTokens(codec, req)
			if err != nil {
				log.Warn().Err(err).Str("stage", req.Stage).Msg("tokens: could not estimate prompt size")
				return next(ctx, req)
			}
			if warnAbove > 0 && n > warnAbove {
				log.Warn().
					Str("stage", req.Stage).
					Int("prompt_tokens", n).
					Int("warn_above", warnAbove).
					Msg("tokens: prompt is getting large")
			} else {
				log.Debug().Str("stage", req.Stage).Int("prompt_tokens", n).Msg("tokens: estimated prompt size")
			}
			return next(ctx, req)
		}
	}
}

// NewDefaultCodec returns the cl100k_base codec.
func NewDefaultCodec() (tokenizer.Codec, error) {
	return tokenizer.Get(tokenizer.Cl100kBase)
}
