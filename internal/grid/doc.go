// Package grid holds cell state for the rewriting engine.
//
// A grid is a flat byte array indexed x + y*MX + z*MX*MY together with an
// Alphabet that maps characters to values and waves. Every consumer
// (rules, fields, nodes, recording) goes through the Ops interface, so a
// PolarGrid can stand in for a Cartesian Grid without changes downstream.
//
// Reads are tolerant and writes are strict:
//   - Get and View.Get return a sentinel outside the grid.
//   - Set and StateFromBytes reject anything that would break the invariants
//     len(state) == MX*MY*MZ and value < NumValues.
package grid
