package pose

import (
	"github.com/banshee-data/plank.report/internal/geometry"
)

// JointName identifies an anatomical landmark reported by the body-pose
// estimator.
type JointName string

const (
	JointRoot          JointName = "root" // midpoint between the hips
	JointNeck          JointName = "neck" // midpoint between the shoulders
	JointNose          JointName = "nose"
	JointLeftEye       JointName = "left_eye"
	JointRightEye      JointName = "right_eye"
	JointLeftEar       JointName = "left_ear"
	JointRightEar      JointName = "right_ear"
	JointLeftShoulder  JointName = "left_shoulder"
	JointRightShoulder JointName = "right_shoulder"
	JointLeftElbow     JointName = "left_elbow"
	JointRightElbow    JointName = "right_elbow"
	JointLeftWrist     JointName = "left_wrist"
	JointRightWrist    JointName = "right_wrist"
	JointLeftHip       JointName = "left_hip"
	JointRightHip      JointName = "right_hip"
	JointLeftKnee      JointName = "left_knee"
	JointRightKnee     JointName = "right_knee"
	JointLeftAnkle     JointName = "left_ankle"
	JointRightAnkle    JointName = "right_ankle"
)

var knownJoints = map[JointName]struct{}{
	JointRoot: {}, JointNeck: {}, JointNose: {},
	JointLeftEye: {}, JointRightEye: {}, JointLeftEar: {}, JointRightEar: {},
	JointLeftShoulder: {}, JointRightShoulder: {},
	JointLeftElbow: {}, JointRightElbow: {},
	JointLeftWrist: {}, JointRightWrist: {},
	JointLeftHip: {}, JointRightHip: {},
	JointLeftKnee: {}, JointRightKnee: {},
	JointLeftAnkle: {}, JointRightAnkle: {},
}

// Valid reports whether j is part of the supported joint vocabulary.
func (j JointName) Valid() bool {
	_, ok := knownJoints[j]
	return ok
}

// Keypoint is one detected landmark: a position and the estimator's
// confidence in [0, 1].
type Keypoint struct {
	Position   geometry.Point `json:"position"`
	Confidence float64        `json:"confidence"`
}

// Keypoints maps joint names to the landmarks detected in one frame.
// Partial skeletons are normal.
type Keypoints map[JointName]Keypoint

// Filter returns the keypoints whose confidence is strictly greater than min.
func (k Keypoints) Filter(min float64) Keypoints {
	out := make(Keypoints, len(k))
	for name, kp := range k {
		if kp.Confidence > min {
			out[name] = kp
		}
	}
	return out
}
