package x11

import (
	"strings"
	"testing"
)

func TestCheckVersion(t *testing.T) {
	cases := []struct {
		name                 string
		gotMajor, gotMinor   uint32
		wantMajor, wantMinor uint32
		ok                   bool
	}{
		{"exact", 0, 3, 0, 3, true},
		{"newer minor", 0, 4, 0, 3, true},
		{"older minor", 1, 0, 1, 1, false},
		{"newer major", 2, 0, 1, 1, false},
		{"older major", 0, 9, 1, 1, false},
	}
	for _, tc := range cases {
		err := checkVersion("Composite", tc.gotMajor, tc.gotMinor, tc.wantMajor, tc.wantMinor)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected incompatibility error", tc.name)
		}
	}
}

func TestCheckVersionDiagnosticNamesExtension(t *testing.T) {
	err := checkVersion("Damage", 0, 9, 1, 1)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Damage") || !strings.Contains(msg, "0.9") || !strings.Contains(msg, "1.1") {
		t.Fatalf("diagnostic should name extension and versions, got %q", msg)
	}
}
