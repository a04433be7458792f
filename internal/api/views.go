package api

import (
	"github.com/banshee-data/plank.report/internal/geometry"
	"github.com/banshee-data/plank.report/internal/hold"
	"github.com/banshee-data/plank.report/internal/pose"
	"github.com/banshee-data/plank.report/internal/session"
	"github.com/banshee-data/plank.report/internal/units"
)

// PairView is a limb segment with its angle and verdict, for overlays.
type PairView struct {
	Kind           pose.JointPairKind `json:"kind"`
	Start          geometry.Point     `json:"start"`
	End            geometry.Point     `json:"end"`
	Angle          int                `json:"angle"`
	MeetsCriterion bool               `json:"meets_criterion"`
}

// PoseView is the JSON form of a classified frame.
type PoseView struct {
	Posture      string     `json:"posture"`
	Confidence   float64    `json:"confidence"`
	MeetsPosture bool       `json:"meets_posture"`
	Pairs        []PairView `json:"pairs"`
}

// NewPoseView returns nil for a nil pose so it encodes as null.
func NewPoseView(p *pose.Pose) *PoseView {
	if p == nil {
		return nil
	}
	v := &PoseView{
		Posture:      p.Posture,
		Confidence:   p.Confidence,
		MeetsPosture: p.MeetsPosture(),
		Pairs:        make([]PairView, 0, len(p.JointPairs)),
	}
	for _, jp := range p.JointPairs {
		v.Pairs = append(v.Pairs, PairView{
			Kind:           jp.Kind,
			Start:          jp.Start,
			End:            jp.End,
			Angle:          jp.Angle(),
			MeetsCriterion: jp.MeetsCriterion,
		})
	}
	return v
}

// StatusView is the body of GET /api/status.
type StatusView struct {
	SessionID       string     `json:"session_id"`
	State           hold.State `json:"state"`
	DurationSeconds int64      `json:"duration_seconds"`
	Duration        string     `json:"duration"`
	FramesSeen      int        `json:"frames_seen"`
	Stopped         bool       `json:"stopped"`
	// Pose is the pose being held; LastPose is the latest frame's result.
	Pose     *PoseView `json:"pose"`
	LastPose *PoseView `json:"last_pose"`
}

func newStatusView(st session.Status) StatusView {
	return StatusView{
		SessionID:       st.ID,
		State:           st.State,
		DurationSeconds: units.Seconds(st.Duration),
		Duration:        st.Formatted,
		FramesSeen:      st.FramesSeen,
		Stopped:         st.Stopped,
		Pose:            NewPoseView(st.Pose),
		LastPose:        NewPoseView(st.LastPose),
	}
}

// TransitionView is one server-sent transition event.
type TransitionView struct {
	Transition      hold.Transition `json:"transition"`
	State           hold.State      `json:"state"`
	DurationSeconds int64           `json:"duration_seconds"`
	Duration        string          `json:"duration"`
	Tick            uint64          `json:"tick"`
	Confidence      float64         `json:"confidence"`
}

func newTransitionView(ev hold.Event) TransitionView {
	v := TransitionView{
		Transition:      ev.Transition,
		State:           ev.State,
		DurationSeconds: units.Seconds(ev.Duration),
		Duration:        units.FormatDuration(ev.Duration),
		Tick:            ev.Tick,
	}
	if ev.Pose != nil {
		v.Confidence = ev.Pose.Confidence
	}
	return v
}
