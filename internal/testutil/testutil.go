// Package testutil provides shared test fixtures and helpers.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/plank.report/internal/frames"
	"github.com/banshee-data/plank.report/internal/geometry"
	"github.com/banshee-data/plank.report/internal/pose"
)

var testTime = time.UnixMilli(1700000000000)

func kp(x, y float64) pose.Keypoint {
	return pose.Keypoint{Position: geometry.Point{X: x, Y: y}, Confidence: 0.9}
}

// PlankKeypoints is a side-on forearm plank facing right that scores full
// marks.
func PlankKeypoints() pose.Keypoints {
	return pose.Keypoints{
		pose.JointRoot:          kp(0.30, 0.50),
		pose.JointNeck:          kp(0.60, 0.55),
		pose.JointRightShoulder: kp(0.60, 0.50),
		pose.JointLeftShoulder:  kp(0.61, 0.50),
		pose.JointRightElbow:    kp(0.60, 0.30),
		pose.JointLeftElbow:     kp(0.61, 0.30),
		pose.JointRightWrist:    kp(0.70, 0.29),
		pose.JointLeftWrist:     kp(0.71, 0.29),
		pose.JointRightHip:      kp(0.30, 0.50),
		pose.JointLeftHip:       kp(0.31, 0.50),
		pose.JointRightKnee:     kp(0.10, 0.45),
		pose.JointLeftKnee:      kp(0.11, 0.45),
		pose.JointRightAnkle:    kp(-0.10, 0.40),
		pose.JointLeftAnkle:     kp(-0.09, 0.40),
	}
}

// StandingKeypoints is an upright subject: the torso is classified but
// fails the posture.
func StandingKeypoints() pose.Keypoints {
	return pose.Keypoints{
		pose.JointRoot:          kp(0.50, 0.50),
		pose.JointNeck:          kp(0.50, 0.80),
		pose.JointRightShoulder: kp(0.45, 0.80),
		pose.JointLeftShoulder:  kp(0.55, 0.80),
		pose.JointRightElbow:    kp(0.44, 0.65),
		pose.JointLeftElbow:     kp(0.56, 0.65),
		pose.JointRightWrist:    kp(0.44, 0.50),
		pose.JointLeftWrist:     kp(0.56, 0.50),
		pose.JointRightHip:      kp(0.47, 0.50),
		pose.JointLeftHip:       kp(0.53, 0.50),
		pose.JointRightKnee:     kp(0.47, 0.30),
		pose.JointLeftKnee:      kp(0.53, 0.30),
		pose.JointRightAnkle:    kp(0.47, 0.10),
		pose.JointLeftAnkle:     kp(0.53, 0.10),
	}
}

// EmptyKeypoints has no torso, so no detector produces a result.
func EmptyKeypoints() pose.Keypoints {
	return pose.Keypoints{pose.JointNose: kp(0.5, 0.9)}
}

// FrameJSON encodes kps as a single-line wire frame.
func FrameJSON(t testing.TB, kps pose.Keypoints) string {
	t.Helper()
	b, err := frames.FromKeypoints(testTime, kps).Encode()
	AssertNoError(t, err)
	return string(b)
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewJSONRequest creates a test HTTP request with a JSON body.
func NewJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
