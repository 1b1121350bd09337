// Package recording captures grid states as frames and restores them.
//
// A Recordable is anything with a geometry (GridType), a palette and a
// byte-level state. Adapt wraps the engine's grids. A Recorder keeps the
// distinct consecutive states of one run under a run ID; the store package
// persists them.
//
// The state contract is the grid's own: one byte per cell, in flat index
// order, every byte below the palette length.
package recording
