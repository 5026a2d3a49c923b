// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible systems (Ceph, SeaweedFS,
// Garage) without pulling in the AWS credential chain, which suits
// air-gapped simulation clusters.
//
// # Basic Usage
//
//	store, err := minio.New("localhost:9000", "survey", "run-7/",
//	    minio.WithStaticCredentials("minioadmin", "minioadmin"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	det, err := catalogio.ReadDetections(ctx, store, "tile-042/detections.json.lz4")
//
// An existing *minio.Client can be wrapped with NewStore.
package minio
