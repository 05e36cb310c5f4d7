package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"newscluster/internal/adapter/fs"
	"newscluster/internal/domain"
)

// FileSource reads articles from CSV and JSONL files under a directory.
// CSV files need a header naming the id, title, url, content and posted_at
// columns; JSONL lines use the same keys.
type FileSource struct {
	root      string
	walker    *fs.Walker
	delimiter rune
}

func NewFileSource(root string, includes, excludes []string, delimiter string) *FileSource {
	d := ','
	if delimiter != "" {
		d = []rune(delimiter)[0]
	}
	return &FileSource{
		root:      root,
		walker:    fs.NewWalker(includes, excludes),
		delimiter: d,
	}
}

func (s *FileSource) Pull(ctx context.Context, since time.Time) ([]domain.Article, error) {
	files, err := s.walker.Walk(s.root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}

	var articles []domain.Article
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var batch []domain.Article
		switch strings.ToLower(filepath.Ext(f.Path)) {
		case ".csv":
			batch, err = s.readCSV(f.Path)
		case ".jsonl", ".ndjson":
			batch, err = readJSONL(f.Path)
		default:
			log.Debug().Str("path", f.RelPath).Msg("Skipping file with unknown extension")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.RelPath, err)
		}

		for _, a := range batch {
			if !a.PostedAt.Before(since) {
				articles = append(articles, a)
			}
		}
	}

	sort.SliceStable(articles, func(i, j int) bool {
		if !articles[i].PostedAt.Equal(articles[j].PostedAt) {
			return articles[i].PostedAt.Before(articles[j].PostedAt)
		}
		return articles[i].ID < articles[j].ID
	})

	log.Info().
		Str("root", s.root).
		Int("files", len(files)).
		Int("articles", len(articles)).
		Msg("Pulled articles")

	return articles, nil
}

func (s *FileSource) Close() error { return nil }

func (s *FileSource) readCSV(path string) ([]domain.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = s.delimiter
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"id", "content", "posted_at"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	get := func(rec []string, name string) string {
		if i, ok := cols[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var articles []domain.Article
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		posted, err := parseTime(get(rec, "posted_at"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		articles = append(articles, domain.Article{
			ID:       get(rec, "id"),
			Title:    get(rec, "title"),
			URL:      get(rec, "url"),
			Content:  get(rec, "content"),
			PostedAt: posted,
		})
	}
	return articles, nil
}

// flexID accepts both string and numeric ids.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type fileRecord struct {
	ID       flexID `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Content  string `json:"content"`
	PostedAt string `json:"posted_at"`
}

func readJSONL(path string) ([]domain.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var articles []domain.Article
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec fileRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		posted, err := parseTime(rec.PostedAt)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		articles = append(articles, domain.Article{
			ID:       string(rec.ID),
			Title:    rec.Title,
			URL:      rec.URL,
			Content:  rec.Content,
			PostedAt: posted,
		})
	}
	return articles, scanner.Err()
}
