// Package catalog defines the source tables exchanged by the matcher:
// detections from a source-extraction run, simulated truth records, and
// detections augmented with the truth shear they were associated with.
//
// Detection positions follow the extractor convention of 1-based pixel
// coordinates; truth positions are 0-based. Positions takes the offset to
// apply so both sets can be placed in the same frame before matching.
package catalog
