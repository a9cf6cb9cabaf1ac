/*
doorcount ingests a continuous video stream from a fixed camera, detects
people in each frame, tracks them across frames and counts directional
crossings of a virtual line to produce live "people in / people out"
statistics, exposed as an annotated MJPEG stream.

The processing pipeline per frame is detection fusion (motion gating and
non-maximum suppression), IoU tracking, and zone based line-crossing
counting.  A single capture goroutine owns the pipeline state and publishes
the latest annotated frame into a shared slot that per-client serving loops
read from, so a slow consumer always sees the most recent frame and never
a backlog.

See the subpackage documentation and cmd/doorcount for usage.
*/
package doorcount
