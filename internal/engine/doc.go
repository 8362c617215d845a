// Package engine runs an LPS program through discrete time cycles.
//
// The engine owns a loaded program and advances its logical time one step
// per cycle. Each cycle moves the world from time T-1 to T: the actions and
// observations executed over [T-1, T] update the state, reactive rules fire
// new goal trees, goal trees are reduced against the new state, and a
// constraint-safe set of actions is chosen for [T, T+1].
//
// ARCHITECTURE:
//
// Single Owner:
// All mutation of the live program happens inside performCycle under the
// engine mutex. Constraint checks and fluent actor updates for candidate
// actions and observations always run on clones, so a rejected candidate
// leaves no trace.
//
// Cycle Flow (performCycle):
//  1. currentTime++
//  2. executed actions and observations update the state via initiates and
//     terminates definitions
//  3. processRules fires rules whose antecedents are fully reduced
//  4. evaluateGoals drops solved and failed goal trees
//  5. selectActions walks the sorted trees and commits candidates that pass
//     the pre-check and the post-check
//  6. processCycleObservations admits the observations scheduled for now
//
// Pacing:
// Step runs a single cycle. Run drives cycles on the cycle interval, or back
// to back under continuous execution. A cycle that outlasts the interval is
// an overrun: the engine halts and Run returns a CycleOverrunError.
//
// Events:
// Lifecycle events are queued while the mutex is held and delivered after
// it is released, so listeners may call back into the engine.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Journal records are stamped with a monotonic seq from Clock.Next(). Wall
// clock time is used only for pacing and execution time statistics.
//
// Deterministic Selection:
// Goal trees are sorted by deadline and then by firing time before action
// selection. Rules are processed in declaration order.
package engine
