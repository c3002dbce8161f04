package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is a record with a stable id and an ordered field map.
// The id is assigned once and never changes; createdAt is fixed at
// construction and updatedAt advances on every data change.
type Document struct {
	id        string
	data      *Object
	createdAt int64
	updatedAt int64
}

// NewDocument creates a document with a fresh UUID
func NewDocument(data *Object) *Document {
	return NewDocumentWithID(uuid.New().String(), data)
}

// NewDocumentWithID creates a document with a caller supplied id. An empty id
// gets a fresh UUID.
func NewDocumentWithID(id string, data *Object) *Document {
	if id == "" {
		id = uuid.New().String()
	}
	if data == nil {
		data = NewObject()
	}
	now := nowMillis()
	return &Document{
		id:        id,
		data:      data,
		createdAt: now,
		updatedAt: now,
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func (d *Document) ID() string       { return d.id }
func (d *Document) CreatedAt() int64 { return d.createdAt }
func (d *Document) UpdatedAt() int64 { return d.updatedAt }

// Data returns the document's field map. Use Put or SetData to change it so
// that updatedAt advances.
func (d *Document) Data() *Object { return d.data }

// Get returns a single field
func (d *Document) Get(field string) (Value, bool) {
	return d.data.Get(field)
}

// Put sets a single field
func (d *Document) Put(field string, v Value) {
	d.data.Set(field, v)
	d.touch(nowMillis())
}

// SetData replaces the whole field map
func (d *Document) SetData(data *Object) {
	if data == nil {
		data = NewObject()
	}
	d.data = data
	d.touch(nowMillis())
}

func (d *Document) touch(now int64) {
	if now > d.updatedAt {
		d.updatedAt = now
	}
}

// Revise returns a copy of d carrying data, keeping d's id and createdAt.
// updatedAt never moves backwards.
func (d *Document) Revise(data *Object) *Document {
	next := &Document{
		id:        d.id,
		data:      data.Clone(),
		createdAt: d.createdAt,
		updatedAt: d.updatedAt,
	}
	next.touch(nowMillis())
	return next
}

// Clone returns a deep copy
func (d *Document) Clone() *Document {
	return &Document{
		id:        d.id,
		data:      d.data.Clone(),
		createdAt: d.createdAt,
		updatedAt: d.updatedAt,
	}
}

// Equal compares id, data and timestamps
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.id == other.id &&
		d.createdAt == other.createdAt &&
		d.updatedAt == other.updatedAt &&
		d.data.Equal(other.data)
}

type documentJSON struct {
	ID        string  `json:"id"`
	Data      *Object `json:"data"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
}

// MarshalJSON implements json.Marshaler
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{
		ID:        d.id,
		Data:      d.data,
		CreatedAt: d.createdAt,
		UpdatedAt: d.updatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Missing fields take the values
// a freshly constructed document would have.
func (d *Document) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID        *string `json:"id"`
		Data      *Object `json:"data"`
		CreatedAt *int64  `json:"createdAt"`
		UpdatedAt *int64  `json:"updatedAt"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	fresh := NewDocumentWithID("", aux.Data)
	if aux.ID != nil && *aux.ID != "" {
		fresh.id = *aux.ID
	}
	if aux.CreatedAt != nil {
		fresh.createdAt = *aux.CreatedAt
		fresh.updatedAt = *aux.CreatedAt
	}
	if aux.UpdatedAt != nil {
		fresh.updatedAt = *aux.UpdatedAt
	}
	*d = *fresh
	return nil
}

// JSON returns the compact JSON encoding used in WAL payloads
func (d *Document) JSON() (string, error) {
	b, err := d.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal document %s: %w", d.id, err)
	}
	return string(b), nil
}

// ParseDocument decodes a document from JSON text
func ParseDocument(text string) (*Document, error) {
	var doc Document
	if err := doc.UnmarshalJSON([]byte(strings.TrimSpace(text))); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ValidateID rejects ids that cannot be written as a single WAL line
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: document id cannot be empty", ErrInvalidInput)
	}
	if strings.ContainsAny(id, "\r\n") {
		return fmt.Errorf("%w: document id cannot contain line breaks", ErrInvalidInput)
	}
	return nil
}

// ValidateCollectionName rejects names that would break the WAL record
// layout or escape the data directory
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidInput)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "|/\\\r\n") {
		return fmt.Errorf("%w: invalid collection name %q", ErrInvalidInput, name)
	}
	return nil
}
