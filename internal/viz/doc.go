// Package viz renders a running simulation in the terminal.
//
// The live view is a Bubble Tea program: particles are projected through an
// orbiting [Camera] onto a braille [Canvas], colored per particle or by
// theme, next to a side panel with the active strategy, parameters, octree
// statistics, a step-time sparkline and a kinetic-energy graph.
//
// # Key Bindings
//
//	Space     - Pause/Resume simulation
//	R         - Respawn particles
//	S         - Cycle force strategy
//	Tab/↑/↓   - Select and tune a parameter
//	+/-       - Double/halve particle count
//	X/Y/Z     - Rotate camera
//	=/_       - Zoom
//	T         - Cycle color themes
//	?         - Show help overlay
package viz
