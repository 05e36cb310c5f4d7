package usecase

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"newscluster/internal/cluster"
	"newscluster/internal/domain"
	"newscluster/internal/port"
)

//go:embed templates/summarize.tmpl
var templatesFS embed.FS

var summarizeTemplate = template.Must(
	template.New("summarize.tmpl").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(templatesFS, "templates/summarize.tmpl"),
)

// DefaultMaxPromptChars bounds the user message sent per cluster.
const DefaultMaxPromptChars = 2000

// SummarizeUseCase asks an LLM for one title and summary per cluster.
type SummarizeUseCase struct {
	llm            port.LLM
	systemPrompt   string
	maxPromptChars int
}

func NewSummarizeUseCase(llm port.LLM, systemPrompt string, maxPromptChars int) *SummarizeUseCase {
	if maxPromptChars <= 0 {
		maxPromptChars = DefaultMaxPromptChars
	}
	return &SummarizeUseCase{
		llm:            llm,
		systemPrompt:   systemPrompt,
		maxPromptChars: maxPromptChars,
	}
}

// SummarizeResult contains the generated summaries and the clusters that
// could not be summarized.
type SummarizeResult struct {
	Summaries []domain.Summary
	Failed    []int
}

// Summarize groups labeled articles into clusters and summarizes each in
// label order. A failing cluster is logged and skipped; context
// cancellation aborts the whole run.
func (u *SummarizeUseCase) Summarize(ctx context.Context, articles []domain.Article) (*SummarizeResult, error) {
	result := &SummarizeResult{}

	for _, c := range cluster.GroupByLabel(articles) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s, err := u.summarizeCluster(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Int("label", c.Label).Int("articles", len(c.Articles)).Msg("Skipping cluster")
			result.Failed = append(result.Failed, c.Label)
			continue
		}
		result.Summaries = append(result.Summaries, s)
	}

	log.Info().
		Int("summaries", len(result.Summaries)).
		Int("failed", len(result.Failed)).
		Str("model", u.llm.ModelName()).
		Msg("Finished summarizing clusters")

	return result, nil
}

func (u *SummarizeUseCase) summarizeCluster(ctx context.Context, c domain.Cluster) (domain.Summary, error) {
	prompt, err := u.BuildPrompt(c)
	if err != nil {
		return domain.Summary{}, err
	}

	out, err := u.llm.GenerateWithSystem(ctx, u.systemPrompt, prompt)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("generate: %w", err)
	}

	var parsed struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(extractJSON(out)), &parsed); err != nil {
		return domain.Summary{}, fmt.Errorf("parse model output: %w", err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return domain.Summary{}, fmt.Errorf("model returned an empty summary")
	}

	sources := make([]string, 0, len(c.Articles))
	for _, a := range c.Articles {
		if a.URL != "" {
			sources = append(sources, a.URL)
		}
	}

	return domain.Summary{
		Label:   c.Label,
		Title:   strings.TrimSpace(parsed.Title),
		Summary: strings.TrimSpace(parsed.Summary),
		Sources: sources,
	}, nil
}

// BuildPrompt renders the user message for c, cut to the configured
// number of characters.
func (u *SummarizeUseCase) BuildPrompt(c domain.Cluster) (string, error) {
	var b strings.Builder
	if err := summarizeTemplate.Execute(&b, c); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return truncateRunes(b.String(), u.maxPromptChars), nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
