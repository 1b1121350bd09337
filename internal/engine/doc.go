// Package engine runs a program tree of rewrite nodes over a grid.
//
// ARCHITECTURE:
//
// Single-Threaded Interpreter:
// An Interpreter owns one grid, one RNG and one program tree. Step runs the
// root node once; Run steps until the root reports no progress or a step
// limit is hit. Nothing inside a run is concurrent, so a (program, seed)
// pair always produces the same grid. Independent runs may proceed in
// parallel on separate interpreters.
//
// Node Tree:
//   - Rule nodes (One, All, Parallel) rewrite the grid.
//   - Branch nodes (Markov, Sequence) schedule their children.
//   - Map rewrites into a grid of a different size and then runs children.
//   - WFC collapses a wave into a new grid and then runs children.
//
// Node is a closed set. Go and Reset dispatch on the concrete kind.
//
// Change Log:
// Every cell write is appended to Context.Changes, and Context.First marks
// where each turn's writes begin. Rule nodes rescan only around changes made
// since they last matched, so a step costs time proportional to what
// changed rather than to the grid size.
package engine
