package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StoredRecord is one row of the records table. Body holds the JSON document.
type StoredRecord struct {
	Collection string    `db:"collection"`
	ID         string    `db:"id"`
	Body       string    `db:"body"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Decode returns the document with the row id set.
func (s StoredRecord) Decode() (Record, error) {
	rec := Record{}
	if err := json.Unmarshal([]byte(s.Body), &rec); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", s.Collection, s.ID, err)
	}
	rec[IDField] = s.ID
	return rec, nil
}

// NewStoredRecord encodes rec as the body of collection/id.
func NewStoredRecord(collection, id string, rec Record, now time.Time) (StoredRecord, error) {
	doc := rec.Clone()
	if doc == nil {
		doc = Record{}
	}
	doc[IDField] = id
	body, err := json.Marshal(doc)
	if err != nil {
		return StoredRecord{}, fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	return StoredRecord{Collection: collection, ID: id, Body: string(body), CreatedAt: now, UpdatedAt: now}, nil
}
