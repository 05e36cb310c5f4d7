package store

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"newscluster/internal/domain"
)

// DateLayout is the day format used in run keys.
const DateLayout = "2006-01-02"

var ErrRunNotFound = errors.New("run not found")

var (
	bucketEmbeddings = []byte("embeddings")
	bucketRuns       = []byte("runs")
	bucketMeta       = []byte("meta")
)

// BoltStore keeps the embedding cache and clustering run records in a
// single bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEmbeddings, bucketRuns, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func embeddingKey(model, text string) []byte {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}

// LookupEmbeddings returns the cached vector per text, nil for misses.
func (s *BoltStore) LookupEmbeddings(model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, text := range texts {
			data := b.Get(embeddingKey(model, text))
			if data == nil {
				continue
			}
			vec, err := decodeVector(data)
			if err != nil {
				return err
			}
			out[i] = vec
		}
		return nil
	})
	return out, err
}

// StoreEmbeddings writes all vectors in one transaction.
func (s *BoltStore) StoreEmbeddings(model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts))
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, text := range texts {
			if err := b.Put(embeddingKey(model, text), encodeVector(vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountEmbeddings returns the number of cached vectors.
func (s *BoltStore) CountEmbeddings() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	return n, err
}

func runKey(r domain.RunRecord) []byte {
	return []byte(r.Date + "/" + r.ID)
}

// SaveRun stores r under "<date>/<id>", replacing a record with the same key.
func (s *BoltStore) SaveRun(r domain.RunRecord) error {
	if r.ID == "" || r.Date == "" {
		return fmt.Errorf("run record needs an id and a date")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).Put(runKey(r), data)
	})
}

// GetRun finds a run by id.
func (s *BoltStore) GetRun(id string) (domain.RunRecord, error) {
	var found domain.RunRecord
	suffix := []byte("/" + id)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if bytes.HasSuffix(k, suffix) {
				return json.Unmarshal(v, &found)
			}
		}
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	})
	return found, err
}

// LatestRun returns the most recently created run for date.
func (s *BoltStore) LatestRun(date string) (domain.RunRecord, error) {
	var latest domain.RunRecord
	var ok bool
	prefix := []byte(date + "/")
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var r domain.RunRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if !ok || r.CreatedAt.After(latest.CreatedAt) {
				latest, ok = r, true
			}
		}
		return nil
	})
	if err != nil {
		return domain.RunRecord{}, err
	}
	if !ok {
		return domain.RunRecord{}, fmt.Errorf("%w for %s", ErrRunNotFound, date)
	}
	return latest, nil
}

// ListRuns returns every run without its articles, newest first.
func (s *BoltStore) ListRuns() ([]domain.RunRecord, error) {
	var runs []domain.RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var r domain.RunRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			r.Articles = nil
			runs = append(runs, r)
			return nil
		})
	})
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, err
}
