// Package cli implements the codescout command tree: index, search,
// watch, and version.
package cli
