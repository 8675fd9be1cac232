package storage

import "errors"

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrMalformedSnapshot  = errors.New("malformed snapshot")
	ErrInvalidMirrorName  = errors.New("invalid mirror file name")
	ErrQdrantUnreachable  = errors.New("qdrant server unreachable")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)
