// Package analytics counts page views per page and UTC calendar day.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/portfolio-site/portfolio-api/internal/apierr"
	"github.com/portfolio-site/portfolio-api/internal/document"
	"github.com/portfolio-site/portfolio-api/internal/document/repository"
	"github.com/portfolio-site/portfolio-api/pkg/metrics"
)

const (
	CollectionName = "analytics"
	DateLayout     = "2006-01-02"

	fieldPage  = "page"
	fieldDate  = "date"
	fieldViews = "views"
)

// Record is one (page, day) counter.
type Record struct {
	ID        string    `json:"id"`
	Page      string    `json:"page"`
	Date      string    `json:"date"`
	Views     int64     `json:"views"`
	CreatedAt time.Time `json:"created_at"`
}

func recordFrom(d document.Document) Record {
	r := Record{ID: d.ID(), CreatedAt: d.CreatedAt()}
	r.Page, _ = d[fieldPage].(string)
	r.Date, _ = d[fieldDate].(string)
	switch v := d[fieldViews].(type) {
	case int64:
		r.Views = v
	case int32:
		r.Views = int64(v)
	case int:
		r.Views = int64(v)
	case float64:
		r.Views = int64(v)
	}
	return r
}

// Service increments page view counters through the shared document store.
type Service struct {
	repo repository.Repository
	now  func() time.Time
}

func NewService(repo repository.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the time source that decides the counter's day.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// IncrementPageView adds one view to today's counter for page, creating the
// counter on the first view of the day, and returns the updated record.
func (s *Service) IncrementPageView(ctx context.Context, page string) (Record, error) {
	page = strings.TrimSpace(page)
	if page == "" {
		return Record{}, apierr.Invalid("page_name is required")
	}
	key := document.Document{
		fieldPage: page,
		fieldDate: s.now().UTC().Format(DateLayout),
	}
	d, err := s.repo.Increment(ctx, CollectionName, key, fieldViews, 1)
	if err != nil {
		return Record{}, apierr.Storage(err)
	}
	metrics.PageViewIncrements.Inc()
	return recordFrom(d), nil
}

// EnsureIndexes creates the unique (page, date) index that makes concurrent
// first-of-day increments collapse onto a single counter.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: fieldPage, Value: 1}, {Key: fieldDate, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("page_date_unique"),
	})
	if err != nil {
		return fmt.Errorf("analytics index: %w", err)
	}
	return nil
}
