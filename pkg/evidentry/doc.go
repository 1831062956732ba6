// Package evidentry is the embedding surface for the audit-package
// lifecycle: generate, list, inspect, download, and archive sealed
// evidence packages backed by an on-disk repository.
package evidentry
