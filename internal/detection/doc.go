// Package detection implements the per-frame obstacle detector.
//
// A frame goes through three pure stages, each usable on its own:
//
//  1. BuildEdgeMap marks pixels whose brightness differs sharply from their
//     right-hand neighbour.
//  2. ExtractRegions groups edge pixels into 8-connected components and
//     keeps only those large enough to be obstacles.
//  3. Classify turns the surviving regions into a directional Verdict.
//
// # Edge Map
//
// Luminance is the unweighted mean of the R, G and B channels; alpha is
// ignored. A pixel is an edge when the luminance difference to the pixel on
// its right exceeds a threshold of 100 minus the sensitivity, so higher
// sensitivity produces more edges. The gradient is one-dimensional and
// horizontal: a uniform area never contains edges and the last column never
// does either.
//
// # Regions
//
// Connected components are found with an iterative flood fill over an
// explicit stack. Components are reported in row-major discovery order and
// must have more than MinRegionPixels pixels and a bounding box wider and
// taller than MinRegionSpan pixels.
//
// # Verdicts
//
// Each region is counted as left or right of the frame's vertical centre
// line. The side with more regions is the side to avoid; equal counts mean
// the obstacle is ahead.
//
// # Coordinate System
//
// Coordinates follow the image convention: origin at the top-left, X
// increasing rightward and Y downward. Region bounds are inclusive.
package detection
