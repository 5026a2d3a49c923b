// Package hash provides the checksum stored in catalog headers.
package hash
