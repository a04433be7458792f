// Package frames decodes keypoint frames produced by an external body-pose
// estimator and delivers them from files, UDP datagrams or pcap captures.
//
// A frame is a JSON object carrying either named keypoints or the 17-point
// COCO skeleton:
//
//	{"ts": 1700000000000, "keypoints": [{"joint": "neck", "x": 0.5, "y": 0.4, "confidence": 0.9}]}
//	{"coco": [[x, y, conf], ...17 entries]}
package frames
