// Package pose classifies a single frame of body keypoints into a scored
// posture.
//
// Responsibilities: joint vocabulary, construction of the fixed set of limb
// segments (joint pairs), posture-specific geometric scoring, and selection of
// the best result when several posture detectors are registered.
// Key types: Keypoints, JointPair, Pose, Detector.
//
// Classification is a pure function of its input. It never returns an error:
// missing or degenerate geometry degrades to "no pose" (a nil *Pose).
package pose
