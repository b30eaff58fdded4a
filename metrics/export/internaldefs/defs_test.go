package internaldefs

import (
	"strings"
	"testing"
)

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2, 0, 0, 0, 0, 3}))
	want := [BucketCount]uint64{1, 1, 3, 3, 3, 3, 3, 6}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeBucketsPadsShortInput(t *testing.T) {
	got := NormalizeBuckets([]uint64{4})
	if got[0] != 4 || got[BucketCount-1] != 0 {
		t.Fatalf("unexpected buckets %v", got)
	}
}

func TestDefinitionNamesUnique(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true}
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "authd_") || !strings.HasSuffix(def.Name, "_total") {
			t.Errorf("counter %q does not follow naming", def.Name)
		}
		if seen[def.Name] {
			t.Errorf("duplicate name %q", def.Name)
		}
		seen[def.Name] = true
	}
	for _, def := range HistogramDefs {
		if seen[def.Name] {
			t.Errorf("duplicate name %q", def.Name)
		}
		seen[def.Name] = true
	}
	if len(HistogramBounds) != BucketCount-1 {
		t.Fatalf("bounds and bucket count disagree")
	}
}
