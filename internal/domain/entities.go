package domain

import "time"

// Article is a single news record pulled for a batch.
// Label is 0 until the article has been through clustering.
type Article struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Content  string    `json:"content"`
	PostedAt time.Time `json:"posted_at"`
	Label    int       `json:"label,omitempty"`
}

type Cluster struct {
	Label    int
	Articles []Article
}

// RunRecord is the persisted outcome of one clustering batch. NumClusters
// counts the clusters at the chosen cut; KeptClusters those that survived
// the minimum size filter.
type RunRecord struct {
	ID             string    `json:"id"`
	Date           string    `json:"date"`
	CreatedAt      time.Time `json:"created_at"`
	Threshold      float64   `json:"threshold"`
	Score          float64   `json:"score"`
	NumClusters    int       `json:"num_clusters"`
	KeptClusters   int       `json:"kept_clusters"`
	Method         string    `json:"method"`
	Metric         string    `json:"metric"`
	EmbeddingModel string    `json:"embedding_model"`
	TotalArticles  int       `json:"total_articles"`
	Articles       []Article `json:"articles"`
}

type Summary struct {
	Label   int      `json:"label"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Sources []string `json:"sources"`
}
