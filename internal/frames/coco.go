package frames

import (
	"sort"

	"github.com/banshee-data/plank.report/internal/geometry"
	"github.com/banshee-data/plank.report/internal/pose"
)

// COCOKeypointCount is the size of the COCO body skeleton.
const COCOKeypointCount = 17

// COCOPoint is one COCO keypoint as [x, y, confidence].
type COCOPoint [3]float64

// cocoJoints is the COCO-17 keypoint order.
var cocoJoints = [COCOKeypointCount]pose.JointName{
	pose.JointNose,
	pose.JointLeftEye,
	pose.JointRightEye,
	pose.JointLeftEar,
	pose.JointRightEar,
	pose.JointLeftShoulder,
	pose.JointRightShoulder,
	pose.JointLeftElbow,
	pose.JointRightElbow,
	pose.JointLeftWrist,
	pose.JointRightWrist,
	pose.JointLeftHip,
	pose.JointRightHip,
	pose.JointLeftKnee,
	pose.JointRightKnee,
	pose.JointLeftAnkle,
	pose.JointRightAnkle,
}

// COCOJoint returns the joint at COCO index i.
func COCOJoint(i int) (pose.JointName, bool) {
	if i < 0 || i >= COCOKeypointCount {
		return "", false
	}
	return cocoJoints[i], true
}

// FromCOCO17 maps a COCO skeleton onto joint names. COCO has no root or
// neck, so they are synthesised as the hip and shoulder midpoints with the
// lower of the two source confidences. Points beyond index 16 are ignored.
func FromCOCO17(points []COCOPoint) pose.Keypoints {
	out := make(pose.Keypoints, COCOKeypointCount+2)
	for i, p := range points {
		if i >= COCOKeypointCount {
			break
		}
		out[cocoJoints[i]] = pose.Keypoint{
			Position:   geometry.Point{X: p[0], Y: p[1]},
			Confidence: p[2],
		}
	}
	synthesise(out, pose.JointRoot, pose.JointLeftHip, pose.JointRightHip)
	synthesise(out, pose.JointNeck, pose.JointLeftShoulder, pose.JointRightShoulder)
	return out
}

func synthesise(kps pose.Keypoints, target, a, b pose.JointName) {
	ka, okA := kps[a]
	kb, okB := kps[b]
	if !okA || !okB {
		return
	}
	kps[target] = pose.Keypoint{
		Position:   geometry.Midpoint(ka.Position, kb.Position),
		Confidence: min(ka.Confidence, kb.Confidence),
	}
}

func sortPoints(pts []Keypoint) {
	sort.Slice(pts, func(i, j int) bool { return pts[i].Joint < pts[j].Joint })
}
