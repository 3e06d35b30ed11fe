// Package imaging provides the image plumbing around the obstacle detector.
//
// This package loads still images from disk, normalises and downscales them
// before they become detection frames, renders region highlights on top of a
// frame, and encodes results as base64 PNG for transport over MCP.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Highlight rectangles are inclusive on both corners, matching the
//     bounding boxes produced by the region extractor
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. The remaining functions are
// stateless and never mutate their input image.
//
// # Error Handling
//
// Functions return errors for:
//   - File I/O and decode errors during image loading
//   - Invalid highlight colours
//   - Encoding errors during PNG output
//
// # Performance Considerations
//
// Frames fed to the detector at a fixed cadence should be kept small; use
// FitWidth to bound the width of camera stills before detection. The cache
// keeps decoded images until Evict or Clear is called.
package imaging
