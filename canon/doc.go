// Package canon normalizes raw message text into a canonical form for
// embedding and computes a fixed-width content hash over it.
//
// Canonicalization is deterministic: the same visual input always produces
// the same output, so superficial formatting differences (markdown markers,
// whitespace, Unicode composition) do not trigger re-embedding while genuine
// content changes do.
package canon
