package storage

import "io"

// Provider is the behavior any backup backend must offer. Keys use forward
// slashes regardless of backend.
//
// Get must fail with an error satisfying errors.Is(err, fs.ErrNotExist)
// when the key is absent.
type Provider interface {
	List(prefix string) ([]string, error)
	Get(key string) (io.ReadCloser, error)
	Put(key string, body io.Reader) error
	Delete(key string) error
}
