package rewriter

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want Occurrence
	}{
		{"Req@", RoleClauseHead, OccBinding},
		{"Req@", RolePattern, OccBinding},
		{"Req@", RoleValue, OccReference},
		{"Req@", RoleGuard, OccReference},
		{"Req@3", RoleClauseHead, OccPassthrough},
		{"Req@3", RoleValue, OccPassthrough},
		{"Req", RoleClauseHead, OccBareMatch},
		{"Req", RolePattern, OccBareMatch},
		{"Req", RoleValue, OccBareMatch},
		{"Acc", RoleGuard, OccBareMatch},
		{"X@10", RolePattern, OccPassthrough},
	}
	for _, tt := range tests {
		if got := Classify(tt.name, tt.role); got != tt.want {
			t.Errorf("Classify(%q, %d) = %s, want %s", tt.name, tt.role, got, tt.want)
		}
	}
}

func TestOccurrenceString(t *testing.T) {
	pairs := map[Occurrence]string{
		OccBinding:     "binding",
		OccReference:   "reference",
		OccBareMatch:   "bare-match",
		OccPassthrough: "passthrough",
	}
	for occ, want := range pairs {
		if occ.String() != want {
			t.Errorf("%d.String() = %q, want %q", occ, occ.String(), want)
		}
	}
}
