package pose

// PosturePlank is the registered name of the plank detector.
const PosturePlank = "plank"

// Plank scoring weights. The maximum attainable score is their sum.
const (
	plankTorsoWeight    = 4
	plankUpperArmWeight = 2
	plankForearmWeight  = 3
	plankLegWeight      = 1

	// PlankMaxScore is the score of a frame that passes every check.
	PlankMaxScore = plankTorsoWeight + 2*plankUpperArmWeight + 2*plankForearmWeight + 4*plankLegWeight
)

// Angular limits, in whole degrees, against the orientation-normalised axis.
const (
	plankMaxTorsoAngle    = 45
	plankMinUpperArmAngle = 70
	plankMaxUpperArmAngle = 110
	plankMaxLegAngle      = 45
	plankFacingSplitAngle = 90
)

// PlankDetector scores a forearm plank: a near-horizontal torso and legs,
// upper arms near vertical under the shoulders, and wrists on the far side of
// the knee line along the y axis.
type PlankDetector struct {
	MinConfidence float64
}

// NewPlankDetector returns a plank detector that ignores joints with
// confidence at or below minConfidence.
func NewPlankDetector(minConfidence float64) *PlankDetector {
	return &PlankDetector{MinConfidence: minConfidence}
}

// Name implements Detector.
func (d *PlankDetector) Name() string { return PosturePlank }

// Detect implements Detector. It returns nil when the root-neck segment is
// missing or out of range, since every other check is relative to it.
func (d *PlankDetector) Detect(kp Keypoints) *Pose {
	pairs := BuildPairs(kp, d.MinConfidence)

	torso := pairs.Valid(RootNeck)
	if torso == nil {
		return nil
	}
	// A torso pointing left flips the reference axis for every segment.
	supplementary := torso.Angle() > plankFacingSplitAngle

	score := 0
	pass := func(p *JointPair, weight int) {
		p.MeetsCriterion = true
		score += weight
	}

	if torso.AngleFor(supplementary) < plankMaxTorsoAngle {
		pass(torso, plankTorsoWeight)
	}

	for _, kind := range []JointPairKind{LeftElbowShoulder, RightElbowShoulder} {
		if p := pairs.Valid(kind); p != nil {
			a := p.AngleFor(supplementary)
			if a > plankMinUpperArmAngle && a < plankMaxUpperArmAngle {
				pass(p, plankUpperArmWeight)
			}
		}
	}

	for _, side := range [][2]JointPairKind{
		{RightWristElbow, RightKneeHip},
		{LeftWristElbow, LeftKneeHip},
	} {
		forearm, thigh := pairs.Valid(side[0]), pairs.Valid(side[1])
		if forearm == nil || thigh == nil {
			continue
		}
		// Compare the wrist (forearm start) with the knee (thigh start).
		if forearm.Start.Y < thigh.Start.Y {
			pass(forearm, plankForearmWeight)
		}
	}

	for _, kind := range []JointPairKind{RightAnkleKnee, LeftAnkleKnee, RightKneeHip, LeftKneeHip} {
		if p := pairs.Valid(kind); p != nil && p.AngleFor(supplementary) < plankMaxLegAngle {
			pass(p, plankLegWeight)
		}
	}

	return &Pose{
		Posture:    PosturePlank,
		JointPairs: pairs.Pairs(),
		Confidence: float64(score) / PlankMaxScore,
	}
}
