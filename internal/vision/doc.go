// Package vision provides the raster analysis stages of panel detection.
//
// The package converts a decoded page image into the two artifacts the
// detection pipeline consumes: a gradient-magnitude map used for contour
// tracing, and a list of straight line segments used as gutter evidence for
// splitting and grouping.
//
// # Pipeline
//
//  1. Grayscale conversion: ITU-R BT.601 luminance, optional Gaussian
//     denoise to suppress halftone textures and scanner noise
//  2. Gradient computation: Sobel operators combined by a weighted sum
//     (Canny with hysteresis available as an alternative)
//  3. Thresholding: Otsu's method over the gradient histogram
//  4. Contour tracing: connected components plus Moore-Neighbor boundary
//     walking, producing candidate polygons
//  5. Segment extraction: Hough transform over the edge mask, scored by
//     length and axis alignment
//
// All operations are pure functions of their inputs; identical input and
// options produce bit-identical output.
//
// # Coordinate System
//
// Origin (0, 0) at the top-left corner, X rightward, Y downward. When a
// page is downscaled for processing, the returned scale factor must be used
// to map coordinates back to the original resolution before they are
// surfaced externally.
package vision
