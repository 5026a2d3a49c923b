// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "survey-bucket",
//	    s3.WithPrefix("run-7/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	truth, err := catalogio.ReadTruth(ctx, store, "tile-042/truth.json.zst")
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large catalogs
//   - Automatic pagination for listing
//   - Configurable prefix for per-run isolation
package s3
