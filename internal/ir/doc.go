// Package ir provides the term model for the LPS runtime.
//
// This package contains the value types every other package works on:
// terms, substitutions (Theta) and clauses. ir imports nothing internal, so
// it stays the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Term is a closed tagged variant. Only the types in term.go implement it.
//   - Terms are immutable by convention. Substitute returns new terms and
//     never rewrites its receiver.
//   - Canonical keys (Key) are the only identity used for sets and dedup.
//     They are NFC normalised and numerically stable (1 and 1.0 share a key).
//   - Time is an integer. Timable windows hold int constants once ground.
package ir
