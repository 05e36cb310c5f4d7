package source

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"newscluster/internal/domain"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// sqliteTimeLayout is how posted_at is compared and stored in SQLite.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLSource reads articles from a relational table with the columns
// id, title, url, content and posted_at.
type SQLSource struct {
	db     *sql.DB
	driver string
	table  string
}

// OpenSQL opens a source for driver "pgx" (Postgres) or "sqlite".
func OpenSQL(driver, dsn, table string) (*SQLSource, error) {
	if driver != "pgx" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if table == "" {
		table = "article"
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if dsn == "" {
		return nil, fmt.Errorf("empty DSN for driver %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	return &SQLSource{db: db, driver: driver, table: table}, nil
}

// NewSQLSource wraps an already open database.
func NewSQLSource(db *sql.DB, driver, table string) *SQLSource {
	if table == "" {
		table = "article"
	}
	return &SQLSource{db: db, driver: driver, table: table}
}

// PostgresDSNFromEnv builds a DSN from the POSTGRES_USER, POSTGRES_PASSWORD,
// POSTGRES_HOST, POSTGRES_PORT and POSTGRES_DB variables. It returns "" when
// POSTGRES_HOST is unset.
func PostgresDSNFromEnv() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD")),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + os.Getenv("POSTGRES_DB"),
	}
	return u.String()
}

func (s *SQLSource) query() string {
	placeholder := "$1"
	if s.driver == "sqlite" {
		placeholder = "?"
	}
	return fmt.Sprintf(
		"SELECT id, title, url, content, posted_at FROM %s WHERE posted_at >= %s ORDER BY posted_at, id",
		s.table, placeholder)
}

func (s *SQLSource) Pull(ctx context.Context, since time.Time) ([]domain.Article, error) {
	var arg any = since
	if s.driver == "sqlite" {
		arg = since.UTC().Format(sqliteTimeLayout)
	}

	rows, err := s.db.QueryContext(ctx, s.query(), arg)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var (
			id                   any
			title, link, content sql.NullString
			posted               any
		)
		if err := rows.Scan(&id, &title, &link, &content, &posted); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}

		postedAt, err := toTime(posted)
		if err != nil {
			return nil, fmt.Errorf("article %v: %w", id, err)
		}
		articles = append(articles, domain.Article{
			ID:       toID(id),
			Title:    title.String,
			URL:      link.String,
			Content:  content.String,
			PostedAt: postedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	log.Info().
		Str("driver", s.driver).
		Str("table", s.table).
		Time("since", since).
		Int("articles", len(articles)).
		Msg("Pulled articles")

	return articles, nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}

func toID(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case []byte:
		return string(x)
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	sqliteTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported posted_at type %T", v)
	}
}
