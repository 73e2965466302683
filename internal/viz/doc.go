// Package viz renders the arm in the terminal.
//
// [FrameRenderer] projects link poses through a [Camera] onto a Braille
// [Canvas] and passes each [Frame] to a sink. The [Viewer] is a Bubble Tea
// program fed with those frames; closing it cancels the drive loop.
// [HeadlessRenderer] records frames without drawing for batch runs.
//
// # Key Bindings
//
//	q      - close the viewer
//	↑/↓    - select joint
//	←/→    - jog the selected joint target
//	a/d    - orbit camera
//	w/s    - tilt camera
//	+/-    - zoom
//	t      - cycle color themes
//	?      - help overlay
package viz
