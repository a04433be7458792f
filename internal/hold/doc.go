// Package hold tracks how long a posture has been held.
//
// A Tracker is driven by a fixed-rate tick. Each tick it looks at the most
// recent classification, moves between Idle and Holding with a grace period
// of DetectionThreshold, and accumulates held time in whole tick intervals.
// Transitions are published to subscribers as discrete events.
package hold
