// Package export writes clustering results to disk and reads them back.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"newscluster/internal/domain"
)

// Delimiter separates CSV fields; article bodies are full of commas.
const Delimiter = '|'

var header = []string{"id", "title", "url", "posted_at", "label", "content"}

// ClustersFileName names the export for articles posted from since to today.
func ClustersFileName(today, since time.Time) string {
	return fmt.Sprintf("news-clusters-%s-to-%s.csv", today.Format(time.DateOnly), since.Format(time.DateOnly))
}

// SummariesFileName names the summaries written for date.
func SummariesFileName(date time.Time) string {
	return fmt.Sprintf("news-summaries-%s.json", date.Format(time.DateOnly))
}

// WriteArticlesFile writes articles to path, creating parent directories.
func WriteArticlesFile(path string, articles []domain.Article) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteArticles(f, articles); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteArticles encodes articles as pipe-delimited CSV with a header row.
func WriteArticles(w io.Writer, articles []domain.Article) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	if err := cw.Write(header); err != nil {
		return err
	}
	for _, a := range articles {
		rec := []string{
			a.ID,
			a.Title,
			a.URL,
			a.PostedAt.Format(time.RFC3339Nano),
			strconv.Itoa(a.Label),
			a.Content,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("article %s: %w", a.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadArticlesFile reads an export written by WriteArticlesFile.
func ReadArticlesFile(path string) ([]domain.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadArticles(f)
}

// ReadArticles decodes the format produced by WriteArticles.
func ReadArticles(r io.Reader) ([]domain.Article, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = len(header)

	got, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		if got[i] != h {
			return nil, fmt.Errorf("unexpected column %d: %q, want %q", i, got[i], h)
		}
	}

	var articles []domain.Article
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		posted, err := time.Parse(time.RFC3339Nano, rec[3])
		if err != nil {
			return nil, fmt.Errorf("article %s: %w", rec[0], err)
		}
		label, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, fmt.Errorf("article %s: bad label: %w", rec[0], err)
		}
		articles = append(articles, domain.Article{
			ID:       rec[0],
			Title:    rec[1],
			URL:      rec[2],
			PostedAt: posted,
			Label:    label,
			Content:  rec[5],
		})
	}
	return articles, nil
}
