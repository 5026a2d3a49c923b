// Package resource bounds how many association jobs run at once and how fast
// they read catalogs from storage.
package resource
