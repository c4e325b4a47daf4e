// Package ioctl applies I/O requests received by a node to the board:
// output batches are validated and written, pin configurations are
// applied with per-item errors, and sensor readings are published.
//
// Everything here runs in the loop goroutine, which owns the board.
package ioctl
