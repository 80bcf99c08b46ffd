package zarr

import (
	"NDZarr/pkg/utils"

	"github.com/pkg/errors"
)

var logger = utils.GetLogger("ndzarr")

// Error kinds surfaced by this package. All are matchable with errors.Is;
// callers get them wrapped with path/key context.
var (
	ErrInvalidShape       = errors.New("invalid shape")
	ErrInvalidChunks      = errors.New("invalid chunk shape")
	ErrInvalidDtype       = errors.New("invalid dtype")
	ErrInvalidChunkCoords = errors.New("invalid chunk coordinates")
	ErrInvalidKey         = errors.New("invalid chunk key")
	ErrInvalidIndexing    = errors.New("invalid indexing")
	ErrIndexOutOfBounds   = errors.New("index out of bounds")
	ErrInvalidValue       = errors.New("invalid value")
	ErrInvalidMetadata    = errors.New("invalid metadata")
	ErrPathNotFound       = errors.New("path not found")
	ErrNodeExists         = errors.New("node already exists")
	ErrStore              = errors.New("store operation failed")
)

// storeErr wraps an unexpected backend failure under ErrStore, keeping the
// backend's message in the chain.
func storeErr(err error, format string, args ...interface{}) error {
	args = append(args, err)
	return errors.Wrapf(ErrStore, format+": %s", args...)
}
