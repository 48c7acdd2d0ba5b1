package zarr

import "errors"

var (
	ErrNotfound         = errors.New("not found")
	ErrKeyExists        = errors.New("key already written")
	ErrReadOnly         = errors.New("store is read-only")
	ErrWriteOnly        = errors.New("store is write-only")
	ErrInvalidMetadata  = errors.New("invalid zarr metadata")
	ErrUnsupported      = errors.New("unsupported feature")
	ErrUnsupportedCodec = errors.New("unsupported codec")
	ErrChecksum         = errors.New("checksum mismatch")
	ErrNotArray         = errors.New("node is not an array")
	ErrNotGroup         = errors.New("node is not a group")
	ErrShape            = errors.New("shape mismatch")
)
