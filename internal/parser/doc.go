// Package parser turns source files into indexable code blocks.
//
// Files in supported languages (Go, JavaScript, TypeScript, Python)
// are parsed with tree-sitter and segmented on top-level declarations,
// so each block corresponds to a function, type, or other natural
// unit. Small neighbors are coalesced and oversized declarations are
// split on line boundaries to keep block sizes within embedding-
// friendly bounds. Unsupported file types fall back to fixed line
// windows.
package parser
