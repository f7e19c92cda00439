package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-console/internal/models"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

// TotalCountHeader carries the unpaginated item count of a list response.
const TotalCountHeader = "X-Total-Count"

const maxErrorBody = 4 << 10

// RecordStore performs CRUD calls against one REST collection.
type RecordStore struct {
	client   *http.Client
	baseURL  string
	resource string
	logger   *zap.Logger
}

// NewRecordStore constructs a store for resource under baseURL.
func NewRecordStore(client *http.Client, baseURL, resource string, logger *zap.Logger) *RecordStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		resource: strings.Trim(resource, "/"),
		logger:   logger,
	}
}

// Resource returns the collection path.
func (s *RecordStore) Resource() string {
	return s.resource
}

// List fetches one page of records and the total item count.
func (s *RecordStore) List(ctx context.Context, query url.Values) ([]models.Record, int, error) {
	target := s.collectionURL()
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	resp, err := s.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "failed to load "+s.resource)
	}
	defer resp.Body.Close()
	if !success(resp.StatusCode) {
		return nil, 0, appErrors.Wrap(statusError(resp), appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "failed to load "+s.resource)
	}

	var records []models.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "failed to decode "+s.resource)
	}
	total := len(records)
	if raw := resp.Header.Get(TotalCountHeader); raw != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n >= 0 {
			total = n
		} else {
			s.logger.Warn("ignoring malformed total count", zap.String("resource", s.resource), zap.String("value", raw))
		}
	}
	return records, total, nil
}

// Get fetches the current server copy of a record.
func (s *RecordStore) Get(ctx context.Context, id string) (models.Record, error) {
	resp, err := s.do(ctx, http.MethodGet, s.itemURL(id), nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "failed to load record "+id)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("record %s not found in %s", id, s.resource))
	}
	if !success(resp.StatusCode) {
		return nil, appErrors.Wrap(statusError(resp), appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "failed to load record "+id)
	}
	var rec models.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "failed to decode record "+id)
	}
	return rec, nil
}

// Create posts a new record; the server assigns the id.
func (s *RecordStore) Create(ctx context.Context, rec models.Record) (models.Record, error) {
	body := rec.Clone()
	delete(body, models.IDField)
	return s.write(ctx, http.MethodPost, s.collectionURL(), body, "failed to create record")
}

// Update replaces the record stored under id.
func (s *RecordStore) Update(ctx context.Context, id string, rec models.Record) (models.Record, error) {
	body := rec.Clone()
	if body == nil {
		body = models.Record{}
	}
	body[models.IDField] = id
	return s.write(ctx, http.MethodPut, s.itemURL(id), body, "failed to update record "+id)
}

// Delete removes the record stored under id.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	resp, err := s.do(ctx, http.MethodDelete, s.itemURL(id), nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, "failed to delete record "+id)
	}
	defer resp.Body.Close()
	if !success(resp.StatusCode) {
		return appErrors.Wrap(statusError(resp), appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, "failed to delete record "+id)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *RecordStore) write(ctx context.Context, method, target string, body models.Record, message string) (models.Record, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, message)
	}
	resp, err := s.do(ctx, method, target, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, message)
	}
	defer resp.Body.Close()
	if !success(resp.StatusCode) {
		return nil, appErrors.Wrap(statusError(resp), appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, message)
	}
	var saved models.Record
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, message)
	}
	return saved, nil
}

func (s *RecordStore) do(ctx context.Context, method, target string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("record request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return nil, err
	}
	s.logger.Debug("record request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

func (s *RecordStore) collectionURL() string {
	return s.baseURL + "/" + s.resource
}

func (s *RecordStore) itemURL(id string) string {
	return s.collectionURL() + "/" + url.PathEscape(id)
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// statusError describes a non-success response, preferring the server's error envelope.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, envelope.Error.Message)
	}
	return fmt.Errorf("status %d", resp.StatusCode)
}
