// Package frameselect reduces a scene to a small set of representative
// frames suitable for cheap AI consumption.
//
// Frames are decoded sequentially from a Source, filtered for sharpness
// (variance of a Laplacian edge response), then deduplicated against the
// last accepted frame using a structural-similarity score. The result is an
// ascending list of timestamps; selection is restartable because every
// invocation re-decodes from the scene start.
package frameselect
