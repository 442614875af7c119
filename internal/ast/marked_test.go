package ast

import "testing"

func TestIsMarked(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Req@", true},
		{"X@", true},
		{"_Tmp@", true},
		{"Req", false},
		{"Req@3", false}, // versioned, not marked
		{"@", false},     // bare marker is not a name
		{"", false},
	}
	for _, tt := range tests {
		if got := IsMarked(tt.name); got != tt.want {
			t.Errorf("IsMarked(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("Req@"); got != "Req" {
		t.Errorf("BaseName(Req@) = %q", got)
	}
}

func TestVersionedName(t *testing.T) {
	if got := VersionedName("Req", 0); got != "Req@0" {
		t.Errorf("VersionedName(Req, 0) = %q", got)
	}
	if got := VersionedName("X", 12); got != "X@12" {
		t.Errorf("VersionedName(X, 12) = %q", got)
	}
}

func TestSplitVersioned(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		counter int
		ok      bool
	}{
		{"Req@3", "Req", 3, true},
		{"X@0", "X", 0, true},
		{"Long@name@12", "Long@name", 12, true},
		{"Req@", "", 0, false},
		{"Req", "", 0, false},
		{"Req@x1", "", 0, false},
		{"@3", "", 0, false},
	}
	for _, tt := range tests {
		base, counter, ok := SplitVersioned(tt.name)
		if ok != tt.ok || base != tt.base || counter != tt.counter {
			t.Errorf("SplitVersioned(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tt.name, base, counter, ok, tt.base, tt.counter, tt.ok)
		}
	}
}

func TestVersionedRoundTrip(t *testing.T) {
	for _, base := range []string{"Req", "X", "_Acc"} {
		for _, counter := range []int{0, 1, 7, 42} {
			name := VersionedName(base, counter)
			gotBase, gotCounter, ok := SplitVersioned(name)
			if !ok || gotBase != base || gotCounter != counter {
				t.Errorf("round trip %q: got (%q, %d, %v)", name, gotBase, gotCounter, ok)
			}
		}
	}
}
