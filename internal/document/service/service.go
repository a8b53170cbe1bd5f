package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/portfolio-site/portfolio-api/internal/apierr"
	"github.com/portfolio-site/portfolio-api/internal/document"
	"github.com/portfolio-site/portfolio-api/internal/document/repository"
	"github.com/portfolio-site/portfolio-api/pkg/metrics"
)

var collectionPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// reservedCollections are owned by other components and never reachable
// through the gateway.
var reservedCollections = map[string]bool{
	"users": true,
}

// Service is the Document Store Gateway: generic CRUD over named
// collections with validation and error classification on top of a
// repository.Repository.
type Service struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() *Service {
	return New(repository.NewMemoryRepo())
}

// ValidateCollection checks that name is an addressable collection. Dots are
// not allowed, which also keeps system.* collections out of reach.
func ValidateCollection(name string) error {
	if !collectionPattern.MatchString(name) {
		return apierr.Invalid("invalid collection name %q", name)
	}
	if reservedCollections[strings.ToLower(name)] {
		return apierr.Invalid("collection %q is not accessible", name)
	}
	return nil
}

func validateFields(fields document.Document) error {
	if fields == nil {
		return apierr.Invalid("request body must be a JSON object")
	}
	if err := document.ValidateFieldNames(fields); err != nil {
		return apierr.Wrap(apierr.InvalidArgument, err.Error(), err)
	}
	return nil
}

func validateQuery(q document.Query) error {
	if q.OrderBy != "" {
		if err := document.ValidateFieldNames(document.Document{q.OrderBy: nil}); err != nil {
			return apierr.Wrap(apierr.InvalidArgument, "invalid order field", err)
		}
	}
	for field := range q.Filter {
		if err := document.ValidateFieldNames(document.Document{field: nil}); err != nil {
			return apierr.Wrap(apierr.InvalidArgument, "invalid filter field", err)
		}
	}
	return nil
}

// classify maps repository failures onto the gateway error taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apierr.Wrap(apierr.NotFound, "Not found", err)
	case errors.Is(err, repository.ErrInvalidID):
		return apierr.Wrap(apierr.InvalidArgument, "invalid id", err)
	}
	return apierr.Storage(err)
}

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = strings.ToLower(apierr.KindOf(err).String())
	}
	metrics.GatewayOps.WithLabelValues(op, result).Inc()
}

func (s *Service) List(ctx context.Context, collection string, q document.Query) (out []document.Document, err error) {
	defer func() { observe("list", err) }()
	if err = ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err = validateQuery(q); err != nil {
		return nil, err
	}
	out, err = s.repo.List(ctx, collection, q)
	return out, classify(err)
}

func (s *Service) Get(ctx context.Context, collection, id string) (d document.Document, err error) {
	defer func() { observe("get", err) }()
	if err = ValidateCollection(collection); err != nil {
		return nil, err
	}
	d, err = s.repo.Get(ctx, collection, id)
	return d, classify(err)
}

func (s *Service) Insert(ctx context.Context, collection string, fields document.Document) (d document.Document, err error) {
	defer func() { observe("insert", err) }()
	if err = ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err = validateFields(fields); err != nil {
		return nil, err
	}
	d, err = s.repo.Insert(ctx, collection, fields)
	return d, classify(err)
}

func (s *Service) Update(ctx context.Context, collection, id string, fields document.Document) (d document.Document, err error) {
	defer func() { observe("update", err) }()
	if err = ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err = validateFields(fields); err != nil {
		return nil, err
	}
	d, err = s.repo.Update(ctx, collection, id, fields)
	return d, classify(err)
}

// Upsert merges fields into the oldest document matching every conflict key,
// or inserts a new one.
func (s *Service) Upsert(ctx context.Context, collection string, fields document.Document, conflictKeys []string) (d document.Document, err error) {
	defer func() { observe("upsert", err) }()
	if err = ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err = validateFields(fields); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(conflictKeys))
	for _, k := range conflictKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if err = document.ValidateFieldNames(keysDoc(keys)); err != nil {
		err = apierr.Wrap(apierr.InvalidArgument, "invalid conflict key", err)
		return nil, err
	}
	d, err = s.repo.Upsert(ctx, collection, fields, keys)
	return d, classify(err)
}

func keysDoc(keys []string) document.Document {
	d := make(document.Document, len(keys))
	for _, k := range keys {
		d[k] = nil
	}
	return d
}

func (s *Service) Delete(ctx context.Context, collection, id string) (err error) {
	defer func() { observe("delete", err) }()
	if err = ValidateCollection(collection); err != nil {
		return err
	}
	return classify(s.repo.Delete(ctx, collection, id))
}
