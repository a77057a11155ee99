package container

import "errors"

var (
	// ErrInvalidMagic means the file's first bytes don't match either the
	// terrain or hillshade magic sequence.
	ErrInvalidMagic = errors.New("container: invalid magic bytes")

	// ErrUnsupportedFormatVersion means the version field names a format
	// this reader doesn't know how to decode.
	ErrUnsupportedFormatVersion = errors.New("container: unsupported format version")

	// ErrInvalidFileSize means the file is too small to hold its own
	// declared header and offset table.
	ErrInvalidFileSize = errors.New("container: invalid file size")

	// ErrDictionaryMismatch means AddTileFromDataset was asked to copy a
	// frame from a source container whose header (version, R, H, or
	// dictionary identity) doesn't match the destination's.
	ErrDictionaryMismatch = errors.New("container: dictionary identity mismatch")

	// ErrMetadataMismatch means a builder reentry found existing metadata
	// (version, R, H) that doesn't match the requested metadata.
	ErrMetadataMismatch = errors.New("container: metadata mismatch on reentry")

	// ErrCorruptFraming means frame-length walking (orphan scan, fast-path
	// copy) encountered a block type or header it cannot interpret.
	ErrCorruptFraming = errors.New("container: corrupt frame header")
)
