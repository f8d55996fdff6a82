package skeleton

import "testing"

func TestColumnsAbsentBody(t *testing.T) {
	cols := Columns(nil)
	if len(cols) != NumJoints {
		t.Fatalf("got %d columns, want %d", len(cols), NumJoints)
	}
	for i, c := range cols {
		if c != "" {
			t.Fatalf("column %d is %q, want empty", i, c)
		}
	}
}

func TestColumnsPresentBody(t *testing.T) {
	var r Record
	r.Joints[0] = Joint{X: 1.5, Y: -2, Z: 1000.25, Confidence: ConfidenceMedium}
	cols := Columns(&r)
	if len(cols) != NumJoints {
		t.Fatalf("got %d columns", len(cols))
	}
	if cols[0] != "1.500,-2.000,1000.250,2" {
		t.Fatalf("got %q", cols[0])
	}

	j, err := ParseJoint(cols[0])
	if err != nil {
		t.Fatal(err)
	}
	if j != r.Joints[0] {
		t.Fatalf("parsed %+v, want %+v", j, r.Joints[0])
	}
}

func TestParseJointRejects(t *testing.T) {
	for _, s := range []string{"", "1,2,3", "a,2,3,1", "1,2,3,9"} {
		if _, err := ParseJoint(s); err == nil {
			t.Errorf("%q: expected error", s)
		}
	}
}

func TestHeaderNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, n := range Header() {
		if seen[n] {
			t.Fatalf("duplicate joint %s", n)
		}
		seen[n] = true
	}
	if ConfidenceHigh.String() != "high" || Confidence(9).String() != "unknown" {
		t.Error("unexpected confidence names")
	}
}
