package wireformat

import "errors"

var (
	// ErrInvalidSerializedData is returned when a decode routine finds
	// framing, a length, or a discriminator it cannot make sense of.
	ErrInvalidSerializedData = errors.New("wireformat: invalid serialized data")

	// ErrValueMissing is returned when a decoder expects a value and
	// finds end-of-stream instead.
	ErrValueMissing = errors.New("wireformat: value missing")

	// ErrLocalRef is returned when converting a Local-kind BlobRef to a
	// Digest, which has no meaning: a Local reference names an offset
	// within the metadata blob that decoded it, not another blob.
	ErrLocalRef = errors.New("wireformat: local blob reference has no digest")

	// ErrSeekOther is returned when trying to seek within a non-local
	// BlobRef using an operation that only makes sense for offsets into
	// the same metadata blob.
	ErrSeekOther = errors.New("wireformat: cannot seek within a non-local blob reference")

	// ErrUnsupported is returned for operations this port reserves a
	// wire-format bit for but does not implement, such as reading a
	// compressed chunk.
	ErrUnsupported = errors.New("wireformat: unsupported")
)
