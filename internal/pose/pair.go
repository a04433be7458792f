package pose

import (
	"fmt"
	"math"

	"github.com/banshee-data/plank.report/internal/geometry"
)

// JointPairKind enumerates the limb segments used for posture scoring.
type JointPairKind int

const (
	RootNeck JointPairKind = iota
	RightAnkleKnee
	RightKneeHip
	RightWristElbow
	RightElbowShoulder
	LeftAnkleKnee
	LeftKneeHip
	LeftWristElbow
	LeftElbowShoulder

	NumJointPairKinds
)

type pairSpec struct {
	name       string
	start, end JointName
}

var pairSpecs = [NumJointPairKinds]pairSpec{
	RootNeck:           {"root_neck", JointRoot, JointNeck},
	RightAnkleKnee:     {"right_ankle_knee", JointRightAnkle, JointRightKnee},
	RightKneeHip:       {"right_knee_hip", JointRightKnee, JointRightHip},
	RightWristElbow:    {"right_wrist_elbow", JointRightWrist, JointRightElbow},
	RightElbowShoulder: {"right_elbow_shoulder", JointRightElbow, JointRightShoulder},
	LeftAnkleKnee:      {"left_ankle_knee", JointLeftAnkle, JointLeftKnee},
	LeftKneeHip:        {"left_knee_hip", JointLeftKnee, JointLeftHip},
	LeftWristElbow:     {"left_wrist_elbow", JointLeftWrist, JointLeftElbow},
	LeftElbowShoulder:  {"left_elbow_shoulder", JointLeftElbow, JointLeftShoulder},
}

func (k JointPairKind) valid() bool { return k >= 0 && k < NumJointPairKinds }

// String returns the snake_case name of the segment.
func (k JointPairKind) String() string {
	if !k.valid() {
		return fmt.Sprintf("JointPairKind(%d)", int(k))
	}
	return pairSpecs[k].name
}

// Joints returns the start and end joints of the segment.
func (k JointPairKind) Joints() (start, end JointName) {
	s := pairSpecs[k]
	return s.start, s.end
}

// MarshalText encodes the kind by name.
func (k JointPairKind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("invalid joint pair kind %d", int(k))
	}
	return []byte(pairSpecs[k].name), nil
}

// UnmarshalText decodes a kind from its name.
func (k *JointPairKind) UnmarshalText(b []byte) error {
	for i, s := range pairSpecs {
		if s.name == string(b) {
			*k = JointPairKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown joint pair kind %q", b)
}

// JointPair is an oriented limb segment between two keypoints.
// MeetsCriterion is set by a detector when the segment passed its check.
type JointPair struct {
	Kind           JointPairKind  `json:"kind"`
	Start          geometry.Point `json:"start"`
	End            geometry.Point `json:"end"`
	MeetsCriterion bool           `json:"meets_criterion"`
}

// Angle returns the segment direction in whole degrees, truncated toward zero.
func (p JointPair) Angle() int {
	return int(math.Trunc(geometry.AngleDegrees(p.Start, p.End)))
}

// SupplementaryAngle returns 180 minus Angle.
func (p JointPair) SupplementaryAngle() int {
	return 180 - p.Angle()
}

// AngleFor returns the supplementary angle when supplementary is set and the
// raw angle otherwise. Detectors use it to compare against a reference axis
// that flips with the subject's facing direction.
func (p JointPair) AngleFor(supplementary bool) int {
	if supplementary {
		return p.SupplementaryAngle()
	}
	return p.Angle()
}

// Invalid reports whether the angle falls outside [0, 180]. Invalid pairs are
// skipped by scoring checks.
func (p JointPair) Invalid() bool {
	a := p.Angle()
	return a > 180 || a < 0
}

// PairSet holds at most one JointPair per kind, indexed by kind.
type PairSet [NumJointPairKinds]*JointPair

// BuildPairs constructs every pair whose two endpoints are present with
// confidence above minConfidence. Pairs with coincident endpoints have no
// direction and are omitted.
func BuildPairs(kp Keypoints, minConfidence float64) PairSet {
	detected := kp.Filter(minConfidence)
	var set PairSet
	for kind := JointPairKind(0); kind < NumJointPairKinds; kind++ {
		startName, endName := kind.Joints()
		start, ok := detected[startName]
		if !ok {
			continue
		}
		end, ok := detected[endName]
		if !ok {
			continue
		}
		if start.Position.Equal(end.Position) {
			continue
		}
		set[kind] = &JointPair{Kind: kind, Start: start.Position, End: end.Position}
	}
	return set
}

// Valid returns the pair of the given kind if it exists and its angle is in
// range, or nil.
func (s *PairSet) Valid(kind JointPairKind) *JointPair {
	p := s[kind]
	if p == nil || p.Invalid() {
		return nil
	}
	return p
}

// Pairs returns copies of the present pairs in kind order.
func (s *PairSet) Pairs() []JointPair {
	out := make([]JointPair, 0, NumJointPairKinds)
	for _, p := range s {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}
