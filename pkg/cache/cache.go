// Package cache keeps every raw API response on disk, keyed by a fingerprint of
// the request, so crawls can be replayed without touching the network. Entries
// are immutable and never expire.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	BackendDir    = "dir"
	BackendBadger = "badger"
)

var (
	ErrMiss               = errors.New("cache miss")
	ErrUnsupportedBackend = errors.New("unsupported cache backend")
)

type Entry struct {
	URL       string            `json:"url"`
	PostData  string            `json:"post_data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Headers   map[string]string `json:"headers"`
	Result    string            `json:"result"`
}

type Store interface {
	Get(fingerprint string) (*Entry, error)
	Put(fingerprint string, entry Entry) error
	Close() error
}

// Fingerprint hashes the full request URL together with the request headers,
// so the same path fetched with and without a bearer token never collides.
// A POST body, when there is one, is part of the key as well.
func Fingerprint(url string, headers map[string]string, postData string) string {
	hash := sha256.New()
	hash.Write([]byte(url))
	hash.Write([]byte{'\n'})
	hash.Write([]byte(SerializeHeaders(headers)))

	if postData != "" {
		hash.Write([]byte{'\n'})
		hash.Write([]byte(postData))
	}

	return hex.EncodeToString(hash.Sum(nil))
}

// SerializeHeaders renders headers as "key: value" lines with lower-cased keys
// in sorted order.
func SerializeHeaders(headers map[string]string) string {
	lowered := make(map[string]string, len(headers))
	for key, value := range headers {
		lowered[strings.ToLower(key)] = value
	}

	keys := make([]string, 0, len(lowered))
	for key := range lowered {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var builder strings.Builder

	for _, key := range keys {
		builder.WriteString(key)
		builder.WriteString(": ")
		builder.WriteString(lowered[key])
		builder.WriteString("\n")
	}

	return builder.String()
}

func Open(backend string, dir string, logger *zap.Logger) (Store, error) {
	switch backend {
	case BackendDir, "":
		return NewDirStore(dir, logger)
	case BackendBadger:
		return OpenBadgerStore(dir, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, backend)
	}
}
