package delimited

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/anirudhraja/protocodec/wire"
)

// DecodeAll decodes independent payloads on up to workers goroutines (GOMAXPROCS when
// workers <= 0). Results are in payload order and each carries its own error, so one
// malformed payload never fails the others. The returned error is non-nil only when
// ctx is canceled before every payload was decoded.
func DecodeAll[T any](ctx context.Context, payloads [][]byte, deserialize wire.Deserializer[T], workers int) ([]Result[T], error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result[T], len(payloads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, payload := range payloads {
		i, payload := i, payload
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := Result[T]{Index: i}
			res.Value, res.Err = wire.Unmarshal(payload, deserialize)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
