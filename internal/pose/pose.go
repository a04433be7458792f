package pose

import (
	"fmt"
	"sort"
)

// PassConfidence is the confidence a Pose must exceed to count as the
// posture being held.
const PassConfidence = 0.5

// DefaultMinJointConfidence is the keypoint confidence at or below which a
// joint is ignored.
const DefaultMinJointConfidence = 0.2

// Pose is the scored classification of one frame.
type Pose struct {
	Posture    string      `json:"posture"`
	JointPairs []JointPair `json:"joint_pairs"`
	Confidence float64     `json:"confidence"`
}

// MeetsPosture reports whether the confidence is strictly above
// PassConfidence. A nil Pose never meets the posture.
func (p *Pose) MeetsPosture() bool {
	return p != nil && p.Confidence > PassConfidence
}

// Pair returns the pair of the given kind, if the frame produced one.
func (p *Pose) Pair(kind JointPairKind) (JointPair, bool) {
	if p == nil {
		return JointPair{}, false
	}
	for _, jp := range p.JointPairs {
		if jp.Kind == kind {
			return jp, true
		}
	}
	return JointPair{}, false
}

// Detector classifies a frame of keypoints for one posture. Detect returns
// nil when the posture cannot be evaluated on this frame.
type Detector interface {
	Name() string
	Detect(kp Keypoints) *Pose
}

// Select runs every detector and returns the highest-confidence result among
// those that produced a Pose. Ties keep the earlier detector. It returns nil
// when no detector produced a result.
func Select(detectors []Detector, kp Keypoints) *Pose {
	var best *Pose
	for _, d := range detectors {
		p := d.Detect(kp)
		if p == nil {
			continue
		}
		if best == nil || p.Confidence > best.Confidence {
			best = p
		}
	}
	return best
}

// DetectorFactory builds a detector that ignores joints at or below
// minConfidence.
type DetectorFactory func(minConfidence float64) Detector

var factories = map[string]DetectorFactory{
	PosturePlank: func(minConfidence float64) Detector { return NewPlankDetector(minConfidence) },
}

// Postures returns the registered posture names in sorted order.
func Postures() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDetector returns the detector registered under name.
func NewDetector(name string, minConfidence float64) (Detector, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown posture %q", name)
	}
	return f(minConfidence), nil
}

// NewDetectors builds one detector per name, in order.
func NewDetectors(names []string, minConfidence float64) ([]Detector, error) {
	out := make([]Detector, 0, len(names))
	for _, name := range names {
		d, err := NewDetector(name, minConfidence)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
