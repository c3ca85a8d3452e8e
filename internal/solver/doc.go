// Package solver defines the boundary between the worker pool and the
// deobfuscation engine, along with a goja-backed implementation that loads a
// solver bundle into an isolated JavaScript runtime per worker.
package solver
