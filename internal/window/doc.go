// Package window provides the sorted secondary index used by the coordinate
// matcher.
//
// The secondary point set is sorted once by its first coordinate. For every
// primary point the matcher then asks two questions of the index:
//
//  1. Where does the lower edge of the tolerance window fall? This is a
//     binary search (Below) that distinguishes an empty index, a probe that
//     precedes the first element, a probe beyond the last element and an
//     exact hit.
//  2. How far does the window reach? The upper edge is discovered by a
//     forward scan (Window) because the window size is not known in advance.
//
// The index is immutable after Build and safe for concurrent readers.
package window
