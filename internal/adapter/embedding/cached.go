package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"newscluster/internal/port"
)

// CachedEmbedder serves repeated texts from an EmbeddingCache and only sends
// misses to the wrapped embedder.
type CachedEmbedder struct {
	next  port.Embedder
	cache port.EmbeddingCache
}

func NewCachedEmbedder(next port.Embedder, cache port.EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache}
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := c.next.ModelName()
	out, err := c.cache.LookupEmbeddings(model, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding cache lookup: %w", err)
	}

	var missIdx []int
	var missTexts []string
	for i, v := range out {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}

	log.Debug().
		Int("hits", len(texts)-len(missIdx)).
		Int("misses", len(missIdx)).
		Str("model", model).
		Msg("Embedding cache")

	if len(missIdx) == 0 {
		return out, nil
	}

	fresh, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}

	if err := c.cache.StoreEmbeddings(model, missTexts, fresh); err != nil {
		return nil, fmt.Errorf("embedding cache store: %w", err)
	}

	for k, i := range missIdx {
		out[i] = fresh[k]
	}
	return out, nil
}

func (c *CachedEmbedder) Dimension() int {
	return c.next.Dimension()
}

func (c *CachedEmbedder) ModelName() string {
	return c.next.ModelName()
}
