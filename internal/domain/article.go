package domain

import "time"

// DefaultWeight is assigned to articles whose source does not rank them.
const DefaultWeight = 5

// Article is a single news item produced by a source fetcher.
type Article struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Content string `json:"content"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Weight  int    `json:"weight"`
}

// Normalize fills defaults for fields a fetcher left empty.
func (a Article) Normalize(day, source string) Article {
	if a.Date == "" {
		a.Date = day
	}
	if a.Source == "" {
		a.Source = source
	}
	if a.Weight == 0 {
		a.Weight = DefaultWeight
	}
	return a
}

// CachedArticleSet is the persisted scrape output for one day.
type CachedArticleSet struct {
	Date      string    `json:"date"`
	Articles  []Article `json:"articles"`
	Timestamp time.Time `json:"timestamp"`
	Total     int       `json:"total"`
}

// NewCachedArticleSet stamps a set with the current time and article count.
func NewCachedArticleSet(day string, articles []Article, now time.Time) CachedArticleSet {
	if articles == nil {
		articles = []Article{}
	}
	return CachedArticleSet{
		Date:      day,
		Articles:  articles,
		Timestamp: now,
		Total:     len(articles),
	}
}
