// Package program holds the knowledge base of an LPS run and the
// reasoning that operates on it.
//
// A Program owns timeless facts, definitions (including the fluent actors
// initiates/2 and terminates/2), reactive rules, integrity constraints,
// the current state and the executed actions. The engine owns the live
// program; hypothetical checks run on clones.
//
// A View fixes the time at which a program is read. Reasoning over a view:
//   - Query: depth-first SLD resolution with negation as failure
//   - ReduceRuleAntecedent: forward resolution of a rule body against
//     everything the view knows
//   - CheckConstraints: violation detection on a snapshot
//   - ExpandRuleAntecedent: unfolding a conjunction through definitions
//   - UpdateStateWithFluentActors: the state transition for executed actions
package program
