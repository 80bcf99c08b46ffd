package codecs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Codec is a reversible byte transform applied to one chunk payload.
// elemSize is the byte width of the array's element type; compressors that
// don't care about it may ignore it.
type Codec interface {
	ID() string
	// Config returns the serializable configuration, including the "id" key.
	// Constructing a codec from its own Config must yield an equal codec.
	Config() map[string]interface{}
	Encode(data []byte, elemSize int) ([]byte, error)
	Decode(data []byte, elemSize int) ([]byte, error)
}

// Error reports a failed transform together with the codec that caused it.
type Error struct {
	ID  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("codec %s: %s", e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func codecErr(id string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{ID: id, Err: err}
}

// Constructor builds a codec from its flat configuration map.
type Constructor func(config map[string]interface{}) (Codec, error)

var (
	regMu    sync.RWMutex
	registry = make(map[string]Constructor)
)

// Register makes a codec id available to FromConfig. Re-registering an id
// replaces the previous constructor.
func Register(id string, c Constructor) {
	regMu.Lock()
	registry[id] = c
	regMu.Unlock()
}

// Registered returns the known codec ids, sorted.
func Registered() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FromConfig reconstructs a codec from a configuration map carrying an "id".
func FromConfig(config map[string]interface{}) (Codec, error) {
	id, _ := config["id"].(string)
	if id == "" {
		return nil, errors.New("codec config has no id")
	}
	regMu.RLock()
	ctor, ok := registry[id]
	regMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown codec %q", id)
	}
	c, err := ctor(config)
	if err != nil {
		return nil, codecErr(id, err)
	}
	return c, nil
}

// JSON numbers decode as float64; config readers accept either.
func intValue(config map[string]interface{}, key string, dflt int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return dflt
	}
}

func boolValue(config map[string]interface{}, key string, dflt bool) bool {
	switch v := config[key].(type) {
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	default:
		return dflt
	}
}

func stringValue(config map[string]interface{}, key, dflt string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return dflt
}
