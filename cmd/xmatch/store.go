package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nbrsim/xmatch/blobstore"
	"github.com/nbrsim/xmatch/blobstore/minio"
	"github.com/nbrsim/xmatch/blobstore/s3"
	"github.com/nbrsim/xmatch/ledger"
)

// openStore resolves a store URI:
//
//	file:///data/run-7   local directory (a bare path works too)
//	mem://               in-process memory
//	s3://bucket/prefix   AWS S3 (XMATCH_S3_ENDPOINT for compatible services)
//	minio://host:port/bucket/prefix
func openStore(ctx context.Context, uri string) (blobstore.BlobStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("store: empty uri")
	}
	if !strings.Contains(uri, "://") {
		return blobstore.NewLocalStore(uri), nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	switch u.Scheme {
	case "file":
		dir := u.Path
		if u.Host != "" {
			dir = u.Host + dir
		}
		if dir == "" {
			return nil, fmt.Errorf("store: %s: missing directory", uri)
		}
		return blobstore.NewLocalStore(dir), nil

	case "mem":
		return blobstore.NewMemoryStore(), nil

	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("store: %s: missing bucket", uri)
		}
		opts := []s3.Option{s3.WithPrefix(strings.TrimPrefix(u.Path, "/"))}
		if ep := os.Getenv("XMATCH_S3_ENDPOINT"); ep != "" {
			opts = append(opts, s3.WithEndpoint(ep), s3.WithPathStyle())
		}
		if region := os.Getenv("XMATCH_S3_REGION"); region != "" {
			opts = append(opts, s3.WithRegion(region))
		}
		return s3.New(ctx, u.Host, opts...)

	case "minio":
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if u.Host == "" || bucket == "" {
			return nil, fmt.Errorf("store: %s: want minio://endpoint/bucket[/prefix]", uri)
		}
		var opts []minio.Option
		if os.Getenv("XMATCH_MINIO_SECURE") == "true" {
			opts = append(opts, minio.WithSecure())
		}
		return minio.New(u.Host, bucket, prefix, opts...)

	default:
		return nil, fmt.Errorf("store: unsupported scheme %q", u.Scheme)
	}
}

// openLedger resolves a ledger URI: "none", "mem", "store" (blobs next to
// the catalogs) or "dynamodb://table".
func openLedger(ctx context.Context, uri string, store blobstore.BlobStore) (ledger.Ledger, error) {
	switch {
	case uri == "" || uri == "none":
		return nil, nil
	case uri == "mem":
		return ledger.NewMemoryLedger(), nil
	case uri == "store":
		return ledger.NewStoreLedger(store, ""), nil
	case strings.HasPrefix(uri, "dynamodb://"):
		table := strings.TrimPrefix(uri, "dynamodb://")
		if table == "" {
			return nil, fmt.Errorf("ledger: %s: missing table", uri)
		}
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("ledger: load aws config: %w", err)
		}
		return ledger.NewDynamoLedger(dynamodb.NewFromConfig(cfg), table), nil
	default:
		return nil, fmt.Errorf("ledger: unsupported %q", uri)
	}
}
