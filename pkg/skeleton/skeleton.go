// Package skeleton describes the body-tracking output of a depth sensor.
package skeleton

import (
	"fmt"
	"strconv"
	"strings"
)

type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

var confidenceNames = [...]string{"none", "low", "medium", "high"}

func (c Confidence) String() string {
	if c >= 0 && int(c) < len(confidenceNames) {
		return confidenceNames[c]
	}
	return "unknown"
}

// NumJoints is the fixed width of every Record.
const NumJoints = 32

// JointNames lists the tracked joints in column order.
var JointNames = [NumJoints]string{
	"neck", "nose", "pelvis",
	"wrist-left", "wrist-right",
	"elbow-left", "elbow-right",
	"thumb-left", "thumb-right",
	"ear-left", "ear-right",
	"head",
	"clavicle-left", "clavicle-right",
	"eye-left", "eye-right",
	"hand-left", "hand-right",
	"handtip-left", "handtip-right",
	"foot-left", "foot-right",
	"ankle-right", "ankle-left",
	"hip-left", "hip-right",
	"shoulder-left", "shoulder-right",
	"spine-chest", "spine-navel",
	"knee-left", "knee-right",
}

// Joint is a position in millimetres in the sensor's coordinate system.
type Joint struct {
	X, Y, Z    float64
	Confidence Confidence
}

func (j Joint) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(j.X, 'f', 3, 64),
		strconv.FormatFloat(j.Y, 'f', 3, 64),
		strconv.FormatFloat(j.Z, 'f', 3, 64),
		strconv.Itoa(int(j.Confidence)),
	}, ",")
}

// Record is the skeleton of one body for one frame, ordered as JointNames.
type Record struct {
	Joints [NumJoints]Joint
}

// Header returns the joint columns of a device log.
func Header() []string {
	return append([]string(nil), JointNames[:]...)
}

// Columns formats r as NumJoints "x,y,z,confidence" fields. A nil record
// (no body in view) yields NumJoints empty fields so rows keep their width.
func Columns(r *Record) []string {
	cols := make([]string, NumJoints)
	if r == nil {
		return cols
	}
	for i, j := range r.Joints {
		cols[i] = j.String()
	}

	return cols
}

// ParseJoint reads a field written by Joint.String.
func ParseJoint(s string) (Joint, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Joint{}, fmt.Errorf("joint %q: want 4 fields, got %d", s, len(parts))
	}
	var (
		j   Joint
		err error
	)
	for i, dst := range []*float64{&j.X, &j.Y, &j.Z} {
		if *dst, err = strconv.ParseFloat(parts[i], 64); err != nil {
			return Joint{}, fmt.Errorf("joint %q: %w", s, err)
		}
	}
	c, err := strconv.Atoi(parts[3])
	if err != nil {
		return Joint{}, fmt.Errorf("joint %q: %w", s, err)
	}
	if c < int(ConfidenceNone) || c > int(ConfidenceHigh) {
		return Joint{}, fmt.Errorf("joint %q: confidence %d out of range", s, c)
	}
	j.Confidence = Confidence(c)

	return j, nil
}
