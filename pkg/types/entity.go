package types

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Reserved field names in a serialized record.
const (
	TypeTag        = "__class__"
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// TimeLayout is the textual timestamp encoding used in serialized records.
const TimeLayout = "2006-01-02T15:04:05.000000"

// now returns the current time at the precision the record format keeps.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Registry is the store an entity registers with on fresh construction and
// persists through on Save.
type Registry interface {
	Register(e Entity)
	Persist() error
}

// Entity is implemented by every stored type.
type Entity interface {
	// TypeName returns the type tag, also the first half of the composite key.
	TypeName() string

	// Core returns the shared lifecycle state.
	Core() *Base
}

// Base carries the identity, timestamps and attributes shared by all
// entities. Concrete types embed it.
type Base struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	attrs    map[string]any
	registry Registry
}

// Core returns b. Embedding types inherit it to satisfy Entity.
func (b *Base) Core() *Base { return b }

// Bind attaches the registry used by Save. Stores call it on Register.
func (b *Base) Bind(r Registry) { b.registry = r }

// Get returns the named attribute.
func (b *Base) Get(name string) (any, bool) {
	v, ok := b.attrs[name]
	return v, ok
}

// Set assigns an attribute. The id, timestamp and type tag fields are
// managed by the entity itself and cannot be assigned.
func (b *Base) Set(name string, value any) error {
	if isReserved(name) {
		return fmt.Errorf("%w: %q", ErrReservedField, name)
	}
	if b.attrs == nil {
		b.attrs = make(map[string]any)
	}
	b.attrs[name] = value
	return nil
}

// Unset removes an attribute. Removing an absent attribute is a no-op.
func (b *Base) Unset(name string) {
	delete(b.attrs, name)
}

// Attributes returns a copy of the attribute map.
func (b *Base) Attributes() map[string]any {
	out := make(map[string]any, len(b.attrs))
	maps.Copy(out, b.attrs)
	return out
}

// Save refreshes UpdatedAt and asks the bound registry to persist its
// full contents. UpdatedAt always moves forward, even within one clock tick.
func (b *Base) Save() error {
	t := now()
	if !t.After(b.UpdatedAt) {
		t = b.UpdatedAt.Add(time.Microsecond)
	}
	b.UpdatedAt = t
	if b.registry == nil {
		return ErrUnbound
	}
	return b.registry.Persist()
}

// init gives a fresh entity its identity and timestamps.
func (b *Base) init() {
	t := now()
	b.ID = uuid.New().String()
	b.CreatedAt = t
	b.UpdatedAt = t
	if b.attrs == nil {
		b.attrs = make(map[string]any)
	}
}

func isReserved(name string) bool {
	switch name {
	case TypeTag, FieldID, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}

// Key returns the composite registry key "<TypeName>.<id>".
func Key(e Entity) string {
	return e.TypeName() + "." + e.Core().ID
}

// New creates a fresh entity of the named type and registers it with reg.
// A nil reg leaves the entity unbound.
func New(name string, reg Registry) (Entity, error) {
	ctor, ok := kinds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	e := ctor()
	e.Core().init()
	if reg != nil {
		reg.Register(e)
	}
	return e, nil
}

// Serialize returns every field of e plus the type tag, with timestamps in
// TimeLayout form. It does not modify e.
func Serialize(e Entity) map[string]any {
	b := e.Core()
	out := make(map[string]any, len(b.attrs)+4)
	maps.Copy(out, b.attrs)
	out[FieldID] = b.ID
	out[FieldCreatedAt] = FormatTime(b.CreatedAt)
	out[FieldUpdatedAt] = FormatTime(b.UpdatedAt)
	out[TypeTag] = e.TypeName()
	return out
}

// Reconstruct rebuilds an entity from a serialized record. The type tag
// selects the concrete type and is otherwise dropped; all other fields are
// copied verbatim. The entity is not registered anywhere.
//
// Returns ErrUnknownType when the tag names no known type.
func Reconstruct(record map[string]any) (Entity, error) {
	tag, ok := record[TypeTag].(string)
	if !ok {
		return nil, ErrMissingTypeTag
	}
	ctor, ok := kinds[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}

	e := ctor()
	b := e.Core()
	var haveCreated, haveUpdated bool
	for k, v := range record {
		switch k {
		case TypeTag:
		case FieldID:
			id, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: id is %T", ErrMissingID, v)
			}
			b.ID = id
		case FieldCreatedAt, FieldUpdatedAt:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s is %T", ErrInvalidTime, k, v)
			}
			t, err := ParseTime(s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			if k == FieldCreatedAt {
				b.CreatedAt, haveCreated = t, true
			} else {
				b.UpdatedAt, haveUpdated = t, true
			}
		default:
			b.attrs[k] = v
		}
	}
	if b.ID == "" {
		return nil, ErrMissingID
	}
	if !haveCreated || !haveUpdated {
		return nil, fmt.Errorf("%w: missing timestamp", ErrInvalidTime)
	}
	return e, nil
}

// String renders e for display as "[<Type>] (<id>) <fields>".
// Field keys are sorted, so the output is deterministic.
func String(e Entity) string {
	b := e.Core()
	fields := b.Attributes()
	fields[FieldID] = b.ID
	fields[FieldCreatedAt] = FormatTime(b.CreatedAt)
	fields[FieldUpdatedAt] = FormatTime(b.UpdatedAt)

	text, err := json.Marshal(keepFloats(fields))
	if err != nil {
		return fmt.Sprintf("[%s] (%s) %v", e.TypeName(), b.ID, fields)
	}
	return fmt.Sprintf("[%s] (%s) %s", e.TypeName(), b.ID, text)
}

// FormatTime encodes t in TimeLayout, in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime decodes a record timestamp. It accepts TimeLayout, the same
// layout without fractional seconds, and RFC 3339.
func ParseTime(s string) (time.Time, error) {
	// Parsing accepts a fractional second after the seconds field even
	// though the layout does not name one.
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}
