// Package synth simulates truth and detection catalogs for test fields.
//
// A Generator is seeded, so the same seed always yields the same tiles:
//
//	g := synth.New(1)
//	truth := g.TruthField(2000, 4096, 4096, 0.05, 8)
//	detections := g.DetectTruths(truth, 0.85, 0.5)
package synth
