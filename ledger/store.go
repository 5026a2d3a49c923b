package ledger

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/nbrsim/xmatch/blobstore"
	"github.com/nbrsim/xmatch/codec"
)

// DefaultStorePrefix is where StoreLedger keeps its entries.
const DefaultStorePrefix = "_ledger"

// StoreLedger keeps one blob per job under a prefix of a BlobStore.
//
// Record checks for an existing entry before writing, which is not atomic on
// object stores. Use DynamoLedger when several runners share a batch.
type StoreLedger struct {
	store  blobstore.BlobStore
	prefix string
	codec  codec.Codec
}

// NewStoreLedger creates a ledger under prefix (DefaultStorePrefix if empty).
func NewStoreLedger(store blobstore.BlobStore, prefix string) *StoreLedger {
	if prefix == "" {
		prefix = DefaultStorePrefix
	}
	return &StoreLedger{store: store, prefix: prefix, codec: codec.Default}
}

func (l *StoreLedger) name(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidJobID, id)
	}
	return path.Join(l.prefix, id+".json"), nil
}

// Lookup implements Ledger.
func (l *StoreLedger) Lookup(ctx context.Context, id string) (Entry, bool, error) {
	name, err := l.name(id)
	if err != nil {
		return Entry{}, false, err
	}

	blob, err := l.store.Open(ctx, name)
	if errors.Is(err, blobstore.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	defer func() { _ = blob.Close() }()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return Entry{}, false, err
	}

	var e Entry
	if err := l.codec.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("ledger: decode %s: %w", id, err)
	}
	return e, true, nil
}

// Record implements Ledger.
func (l *StoreLedger) Record(ctx context.Context, e Entry) error {
	_, ok, err := l.Lookup(ctx, e.JobID)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyRecorded
	}

	name, err := l.name(e.JobID)
	if err != nil {
		return err
	}
	data, err := l.codec.Marshal(e)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, name, data)
}
