package usecase

import "newscluster/internal/domain"

// DedupeByContent drops every article whose content already appeared
// earlier in the slice. Order of the kept articles is preserved.
func DedupeByContent(articles []domain.Article) []domain.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if _, ok := seen[a.Content]; ok {
			continue
		}
		seen[a.Content] = struct{}{}
		out = append(out, a)
	}
	return out
}
