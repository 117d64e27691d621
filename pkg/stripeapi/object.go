package stripeapi

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
)

// nestedCtor hydrates a raw nested mapping into a typed child model.
type nestedCtor func(data map[string]any, api *Client) any

// expandHook lets a variant take over nested expansion for a key before
// the declarative nested map is consulted. Used by EventData, whose
// "object" field expands polymorphically based on the payload's own
// object tag. Returning ok=false falls through to the default behavior.
type expandHook func(key string, value any, api *Client) (expanded any, ok bool)

// objectConfig is the per-variant static configuration: the API path,
// the whitelist of fields update/save may transmit, and the declarative
// nested-object map.
type objectConfig struct {
	endpoint     string
	updatable    []string
	nested       map[string]nestedCtor
	expandHook   expandHook
	immutable    bool
	immutableMsg string
}

// Object is the base of every API model. It keeps a snapshot of the raw
// values it was hydrated from so that Save can transmit only the fields
// that actually changed, and it holds a non-owning reference to the
// Client it was constructed with for follow-up calls.
type Object struct {
	api      *Client
	cfg      objectConfig
	original map[string]any
	fields   map[string]any
}

func newObject(api *Client, cfg objectConfig, data map[string]any) Object {
	o := Object{api: api, cfg: cfg}
	o.Refresh(data)
	return o
}

// Refresh rehydrates the object from a raw API response. The original
// snapshot is replaced, so a refreshed object has an empty dirty diff.
func (o *Object) Refresh(data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	o.original = data
	o.fields = make(map[string]any, len(data))
	for key, value := range data {
		o.fields[key] = o.expand(key, value)
	}
}

func (o *Object) expand(key string, value any) any {
	if o.cfg.expandHook != nil {
		if expanded, ok := o.cfg.expandHook(key, value, o.api); ok {
			return expanded
		}
	}
	ctor, declared := o.cfg.nested[key]
	if !declared {
		return value
	}
	raw, isMap := value.(map[string]any)
	if !isMap {
		// Scalar/opaque reference (e.g. just an ID string): left as is.
		return value
	}
	return ctor(raw, o.api)
}

// ID returns the object's upstream identifier, or "" before creation.
func (o *Object) ID() string {
	id, _ := o.fields["id"].(string)
	return id
}

// Endpoint returns the variant's API path (e.g. "customers").
func (o *Object) Endpoint() string {
	return o.cfg.endpoint
}

// Get returns the raw or expanded value for key, or nil.
func (o *Object) Get(key string) any {
	return o.fields[key]
}

// Has reports whether key is present on the object.
func (o *Object) Has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

// Set mutates the in-memory object only; nothing is sent to the API
// until Save is called.
func (o *Object) Set(key string, value any) {
	o.fields[key] = value
}

// GetString returns the value for key as a string, or "".
func (o *Object) GetString(key string) string {
	s, _ := o.fields[key].(string)
	return s
}

// GetInt returns the value for key as an int64, tolerating the float64
// representation JSON decoding produces.
func (o *Object) GetInt(key string) int64 {
	switch v := o.fields[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// GetFloat returns the value for key as a float64, or 0.
func (o *Object) GetFloat(key string) float64 {
	switch v := o.fields[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// GetBool returns the value for key as a bool, or false.
func (o *Object) GetBool(key string) bool {
	b, _ := o.fields[key].(bool)
	return b
}

// GetMap returns the value for key as a raw mapping, or nil. Keys that
// were expanded into typed children return nil here; use Get.
func (o *Object) GetMap(key string) map[string]any {
	m, _ := o.fields[key].(map[string]any)
	return m
}

// rawSnapshot exposes the original hydration values so that parent
// objects can compare an expanded child against its source mapping.
type rawSnapshot interface {
	originalValues() map[string]any
}

func (o *Object) originalValues() map[string]any {
	return o.original
}

// dirty returns every field whose current value differs from the
// original snapshot. Fields absent from the snapshot are always dirty.
func (o *Object) dirty() Params {
	out := Params{}
	for key, value := range o.fields {
		orig, ok := o.original[key]
		if !ok || !looselyEqual(value, orig) {
			out[key] = value
		}
	}
	return out
}

// serializeParameters filters the dirty diff to a whitelist of field
// names supported by a particular endpoint.
func (o *Object) serializeParameters(supported []string) Params {
	dirty := o.dirty()
	params := Params{}
	for _, key := range supported {
		if value, ok := dirty[key]; ok {
			params[key] = value
		}
	}
	return params
}

// UpdateParameters returns the dirty diff restricted to the variant's
// updatable-field whitelist. This is exactly what Save transmits.
func (o *Object) UpdateParameters() Params {
	return o.serializeParameters(o.cfg.updatable)
}

// Update POSTs data to the variant endpoint for id and refreshes this
// object in place from the response. Immutable variants (events, event
// data, checkout sessions, customer balance transactions) fail with
// ErrImmutable.
func (o *Object) Update(ctx context.Context, id string, data Params) error {
	if o.cfg.immutable {
		return fmt.Errorf("%w: %s", ErrImmutable, o.cfg.immutableMsg)
	}
	response, err := o.api.Request(ctx, o.cfg.endpoint+"/"+id, data, http.MethodPost, http.StatusOK)
	if err != nil {
		return err
	}
	o.Refresh(response)
	return nil
}

// Save computes the dirty-field diff against the original values,
// restricts it to the updatable whitelist, and sends only that.
func (o *Object) Save(ctx context.Context) error {
	return o.Update(ctx, o.ID(), o.UpdateParameters())
}

// looselyEqual compares two values structurally, normalizing numeric
// types (a field set to int 1500 is not dirty against an original
// float64 1500) and unwrapping expanded child objects back to the raw
// mapping they were hydrated from.
func looselyEqual(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	switch t := v.(type) {
	case rawSnapshot:
		return normalize(anyMap(t.originalValues()))
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	case map[string]any:
		return anyMap(t)
	case Params:
		return anyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	}
	return v
}

// referenceID reduces a field that may hold either an opaque ID string,
// an expanded child model, or a raw mapping to the upstream identifier.
func referenceID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case identifiable:
		return t.ID()
	case map[string]any:
		id, _ := t["id"].(string)
		return id
	}
	return ""
}

func anyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = normalize(value)
	}
	return out
}
