package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sma-records-console/internal/models"
	"github.com/noah-isme/sma-records-console/internal/schema"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
	"github.com/noah-isme/sma-records-console/pkg/jobs"
)

// RecordRepository abstracts document persistence.
type RecordRepository interface {
	ListAll(ctx context.Context, collection string) ([]models.StoredRecord, error)
	FindByID(ctx context.Context, collection, id string) (*models.StoredRecord, error)
	Insert(ctx context.Context, rec *models.StoredRecord) error
	Update(ctx context.Context, rec *models.StoredRecord) error
	Delete(ctx context.Context, collection, id string) error
}

// RetryQueue takes cache invalidations that failed inline.
type RetryQueue interface {
	Enqueue(job jobs.Job) error
}

// ListResult is one page of a collection plus the filtered total.
type ListResult struct {
	Items []models.Record `json:"items"`
	Total int             `json:"total"`
}

// RecordService serves the REST collections of the registry.
type RecordService struct {
	repo     RecordRepository
	registry *schema.Registry
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	retries  RetryQueue
	group    singleflight.Group
	now      func() time.Time
	newID    func() string

	genMu       sync.Mutex
	generations map[string]uint64
}

// NewRecordService constructs the service. cache and metrics may be nil.
func NewRecordService(repo RecordRepository, registry *schema.Registry, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *RecordService {
	if registry == nil {
		registry = schema.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{
		repo:        repo,
		registry:    registry,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		generations: map[string]uint64{},
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.NewString() },
	}
}

// SetInvalidationRetry routes failed cache invalidations to q.
func (s *RecordService) SetInvalidationRetry(q RetryQueue) {
	s.retries = q
}

// collection resolves a resource path to its schema.
func (s *RecordService) collection(resource string) (schema.Schema, error) {
	sch, ok := s.registry.ByResource(resource)
	if !ok {
		return schema.Schema{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown collection %q", resource))
	}
	return sch, nil
}

// List returns the page selected by query. Identical concurrent loads share
// one database read, and results are cached per collection when enabled.
func (s *RecordService) List(ctx context.Context, resource string, query url.Values) (ListResult, error) {
	sch, err := s.collection(resource)
	if err != nil {
		return ListResult{}, err
	}
	q, err := parseListQuery(query)
	if err != nil {
		return ListResult{}, err
	}

	// A load that began before a write can only fill a key of the old
	// generation, which no later reader asks for.
	key := ListKey(sch.ResourcePath, s.generation(sch.ResourcePath), query)
	var cached ListResult
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		records, err := s.loadAll(ctx, sch.ResourcePath)
		if err != nil {
			return ListResult{}, err
		}
		items, total := q.apply(records)
		result := ListResult{Items: items, Total: total}
		_ = s.cache.Set(ctx, key, result, 0)
		return result, nil
	})
	if err != nil {
		return ListResult{}, err
	}
	if shared {
		s.metrics.RecordSharedLoad()
	}
	return v.(ListResult), nil
}

func (s *RecordService) generation(collection string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[collection]
}

func (s *RecordService) bumpGeneration(collection string) {
	s.genMu.Lock()
	s.generations[collection]++
	s.genMu.Unlock()
}

func (s *RecordService) loadAll(ctx context.Context, collection string) ([]models.Record, error) {
	start := time.Now()
	rows, err := s.repo.ListAll(ctx, collection)
	s.metrics.ObserveDBQuery("records_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+collection)
	}
	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.Decode()
		if err != nil {
			s.logger.Warn("skipping undecodable record", zap.String("collection", collection), zap.String("id", row.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get returns one document.
func (s *RecordService) Get(ctx context.Context, resource, id string) (models.Record, error) {
	sch, err := s.collection(resource)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.FindByID(ctx, sch.ResourcePath, id)
	if err != nil {
		return nil, err
	}
	return row.Decode()
}

// Create stores body under a fresh UUID.
func (s *RecordService) Create(ctx context.Context, resource string, body models.Record) (models.Record, error) {
	sch, err := s.collection(resource)
	if err != nil {
		return nil, err
	}
	id := s.newID()
	if err := s.checkUnique(ctx, sch, id, body); err != nil {
		return nil, err
	}
	row, err := models.NewStoredRecord(sch.ResourcePath, id, body, s.now())
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.repo.Insert(ctx, &row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create record")
	}
	s.afterWrite(ctx, sch.ResourcePath, "create", id)
	return row.Decode()
}

// Replace overwrites the document at id with body; the path id wins over any id in body.
func (s *RecordService) Replace(ctx context.Context, resource, id string, body models.Record) (models.Record, error) {
	sch, err := s.collection(resource)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, sch.ResourcePath, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, sch, id, body); err != nil {
		return nil, err
	}
	row, err := models.NewStoredRecord(sch.ResourcePath, id, body, s.now())
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	row.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, &row); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, sch.ResourcePath, "replace", id)
	return row.Decode()
}

// Delete removes the document at id.
func (s *RecordService) Delete(ctx context.Context, resource, id string) error {
	sch, err := s.collection(resource)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, sch.ResourcePath, id); err != nil {
		return err
	}
	s.afterWrite(ctx, sch.ResourcePath, "delete", id)
	return nil
}

// checkUnique rejects a body whose unique fields collide with another document.
func (s *RecordService) checkUnique(ctx context.Context, sch schema.Schema, id string, body models.Record) error {
	unique := sch.UniqueFields()
	if len(unique) == 0 {
		return nil
	}
	records, err := s.loadAll(ctx, sch.ResourcePath)
	if err != nil {
		return err
	}
	for _, f := range unique {
		value, ok := body.Text(f.Name)
		if !ok || value == "" {
			continue
		}
		for _, rec := range records {
			if rec.ID() == id {
				continue
			}
			if other, _ := rec.Text(f.Name); strings.EqualFold(other, value) {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %s already exists", f.Label, value))
			}
		}
	}
	return nil
}

func (s *RecordService) afterWrite(ctx context.Context, collection, op, id string) {
	s.metrics.RecordWrite(collection, op)
	s.bumpGeneration(collection)
	if err := s.cache.InvalidateCollection(ctx, collection); err != nil {
		s.logger.Warn("stale list cache", zap.String("collection", collection), zap.Error(err))
		if s.retries != nil {
			if qerr := s.retries.Enqueue(jobs.Job{Key: collection}); qerr != nil {
				s.logger.Error("invalidation not queued", zap.String("collection", collection), zap.Error(qerr))
			}
		}
	}
	s.logger.Info("record written", zap.String("collection", collection), zap.String("op", op), zap.String("id", id))
}
