package store

import (
	"NDZarr/pkg/utils"

	"github.com/pkg/errors"
)

var logger = utils.GetLogger("ndzarr")

var (
	// ErrNotFound is returned by Get when a key does not exist.
	ErrNotFound = errors.New("key not found")
	// ErrReadOnly is returned by mutating calls on a read-only store.
	ErrReadOnly = errors.New("store is read-only")
	// ErrNotSupported is returned when a store lacks a capability.
	ErrNotSupported = errors.New("operation not supported by store")
)

// Info describes the fixed capabilities of a store. Flags are set at
// construction time and never change afterwards.
type Info struct {
	Name            string
	SupportsWrites  bool
	SupportsDeletes bool
	SupportsListing bool
	ReadOnly        bool
}

// Store is a durable mapping from "/"-delimited keys to opaque byte values.
// Implementations must be safe for concurrent use; callers that need
// read-modify-write atomicity on a single key must serialize externally.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Put stores value under key, overwriting any existing value.
	Put(key string, value []byte) error
	// Delete removes key. Removing a missing key is not an error.
	Delete(key string) error
	// Contains reports whether key exists.
	Contains(key string) (bool, error)
	// List returns all keys with the given prefix, in unspecified order.
	List(prefix string) ([]string, error)
	Info() Info
}

type readonly struct {
	Store
}

// NewReadOnly returns a view of s that rejects writes and deletes before any
// store call is issued.
func NewReadOnly(s Store) Store {
	return &readonly{s}
}

func (r *readonly) Put(key string, value []byte) error {
	return errors.Wrapf(ErrReadOnly, "put %s", key)
}

func (r *readonly) Delete(key string) error {
	return errors.Wrapf(ErrReadOnly, "delete %s", key)
}

func (r *readonly) Info() Info {
	info := r.Store.Info()
	info.ReadOnly = true
	info.SupportsWrites = false
	info.SupportsDeletes = false
	return info
}
