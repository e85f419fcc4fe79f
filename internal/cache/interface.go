package cache

import (
	"encoding/json"
	"reflect"
	"time"
)

// Cache defines the interface for cache backends
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
}

// Load reads key into out, which must be a non-nil pointer. The memory backend
// hands back the stored Go value while redis hands back decoded JSON, so a
// type mismatch falls back to a JSON round trip.
func Load(c Cache, key string, out interface{}) bool {
	if c == nil {
		return false
	}

	cached, ok := c.Get(key)
	if !ok || cached == nil {
		return false
	}

	dst := reflect.ValueOf(out)
	if dst.Kind() != reflect.Ptr || dst.IsNil() {
		return false
	}

	src := reflect.ValueOf(cached)
	if src.Type().AssignableTo(dst.Elem().Type()) {
		dst.Elem().Set(src)
		return true
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}
