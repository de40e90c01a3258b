// Package viz is the terminal live view of a running simulation.
//
// Points are drawn on a Braille [Canvas] (2x4 dots per cell) with an
// optional overlay of the current quadtree regions. A side panel shows
// survivors, tree statistics and an energy history chart.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	S     - Single step while paused
//	R     - Reset to the initial points
//	B     - Toggle quadtree overlay
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help
//	Q     - Quit
package viz
