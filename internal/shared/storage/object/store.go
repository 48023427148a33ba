package object

import (
	"context"
	"io"
)

// ObjectStore keeps uploaded originals, extracted text and exported results.
// Save places the object under a hashed namespace with a random prefix;
// SaveWithKey writes to a caller-chosen key. Delete of a missing key is not
// an error.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// ReadString reads a whole object, failing once it grows past limit bytes.
func ReadString(ctx context.Context, store ObjectStore, storageKey string, limit int64) (string, error) {
	rc, err := store.Open(ctx, storageKey)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", ErrTooLarge
	}
	return string(data), nil
}
