// Package testutil provides testing utilities for xmatch.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random point sets and catalogs and an
// exhaustive reference matcher to compare the indexed matcher against.
//
// # Random Point Generation
//
//	rng := testutil.NewRNG(seed)
//	x, y := rng.UniformPoints(1000, 2048, 4096)
//	truth := rng.TruthField(500, 2048, 4096, 0.05, 8)
//
// # Reference Matching
//
//	i1, i2 := testutil.BruteForceMatch(x1, y1, x2, y2, ep, allow)
package testutil
