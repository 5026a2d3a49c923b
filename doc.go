// Package xmatch cross-matches point catalogs by position and associates
// source-extraction detections with simulation truth.
//
// # Matching
//
// Match pairs every primary point with the secondary points that fall inside
// an axis-aligned box of half-width ep, keeping at most allow of them, closest
// first:
//
//	res, _ := xmatch.Match(x1, y1, x2, y2, 1.5, 1)
//	for _, p := range res.Pairs() {
//	    fmt.Println(p.I1, p.I2)
//	}
//
// The secondary set is sorted by x once; each primary point then costs a
// binary search plus a scan of its x window. A Matcher adds logging, metrics
// and a sharded parallel primary loop for large catalogs:
//
//	m := xmatch.New(
//	    xmatch.WithLogger(xmatch.NewJSONLogger(slog.LevelInfo)),
//	    xmatch.WithWorkers(8),
//	)
//	res, _ := m.Match(ctx, x1, y1, x2, y2, 1.5, 1)
//
// # Truth association
//
// Associate copies the shear of the closest truth record onto each detection:
//
//	aug, summary, _ := m.Associate(ctx, detections, truth)
//	fmt.Println(summary) // matched 812/1000 0.81
//
// Detections are in 1-based pixel coordinates and truth in 0-based ones, so
// one pixel is subtracted from detection positions before matching
// (WithPixelOffset). Unmatched detections carry catalog.UnmatchedShearIndex.
//
// # Batches
//
// A Batch runs many tiles against a blobstore.BlobStore, bounded by a
// resource.Controller and resumable through a ledger.Ledger:
//
//	store, _ := s3.New(ctx, "survey", s3.WithPrefix("run-7/"))
//	b := m.NewBatch(store, xmatch.WithLedger(ledger.NewStoreLedger(store, "")))
//	results, err := b.Run(ctx, jobs)
package xmatch
