// Package dataset builds PNG image datasets from clinical videos.
//
// Two dataset types exist (see [Type]):
//
//   - [TypeMaxConstriction]: one labeled frame per video. [Builder.FromLabels]
//     walks label rows sequentially and writes "{id}_max_constriction.png".
//   - [TypeAllFrames]: every frame of every video in a directory.
//     [Builder.AllFrames] runs one task per video on a bounded worker pool
//     and writes "{id}_frame_{n}.png" for n = 0, 1, ...
//
// Both modes write into a run directory that already exists (see package
// [go.jacobcolvin.com/stillframe/rundir]). Failures are contained at the
// smallest unit that keeps the batch moving: a missing frame skips one label
// row, a broken video skips one video. Only context cancellation stops a
// build early.
//
// Frames whose size differs from the configured target are scaled to exactly
// the target size (see [frame.Fit]).
//
// After a build, [WriteManifest] records what was produced in the run
// directory.
package dataset
