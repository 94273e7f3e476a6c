package bodymap

import (
	"errors"
	"testing"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

func TestBroadZoneNeedsRefinement(t *testing.T) {
	r := NewResolver()
	res, err := r.Resolve("arm.left")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.NeedsRefinement {
		t.Fatal("expected needsRefinement for arm.left")
	}
	if res.Refinement == nil || len(res.Refinement.Options) != 6 {
		t.Fatalf("expected 6 sub-options for arm.left, got %+v", res.Refinement)
	}
	for _, opt := range res.Refinement.Options {
		if _, err := r.Resolve(opt.ZoneID); err != nil {
			t.Errorf("refinement option %q does not resolve: %v", opt.ZoneID, err)
		}
	}
}

func TestTerminalZoneResolution(t *testing.T) {
	r := NewResolver()
	res, err := r.Resolve("arm.left.elbow_anterior")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.NeedsRefinement {
		t.Fatal("terminal zone must not request refinement")
	}
	z := res.Zone
	if z == nil {
		t.Fatal("expected resolved zone")
	}
	if z.Laterality != LateralityLeft {
		t.Errorf("expected laterality left, got %q", z.Laterality)
	}
	if z.ClinicalName != "left antecubital fossa" {
		t.Errorf("unexpected clinical name %q", z.ClinicalName)
	}
	if z.HasSubParts {
		t.Error("elbow_anterior has no sub-parts")
	}
}

func TestInvalidSegmentFails(t *testing.T) {
	r := NewResolver()
	cases := []struct {
		zoneID  string
		segment string
	}{
		{"arm.left.palm", "palm"},
		{"torso", "torso"},
		{"chest.center.valve", "valve"},
		{"", ""},
	}
	for _, c := range cases {
		_, err := r.Resolve(c.zoneID)
		var zerr *ZoneError
		if !errors.As(err, &zerr) {
			t.Errorf("Resolve(%q): expected ZoneError, got %v", c.zoneID, err)
			continue
		}
		if zerr.Segment != c.segment {
			t.Errorf("Resolve(%q): expected failing segment %q, got %q", c.zoneID, c.segment, zerr.Segment)
		}
	}
}

func TestDeriveLaterality(t *testing.T) {
	cases := map[string]Laterality{
		"arm.left.wrist":  LateralityLeft,
		"leg.right.knee":  LateralityRight,
		"chest.center":    LateralityBilateral,
		"abdomen.center":  LateralityBilateral,
		"back.lower":      LateralityMidline,
		"head.front":      LateralityMidline,
		"head.temple_left": LateralityLeft,
	}
	for zone, want := range cases {
		if got := DeriveLaterality(zone); got != want {
			t.Errorf("DeriveLaterality(%q) = %q, want %q", zone, got, want)
		}
	}
}

func TestTreeKeyMapping(t *testing.T) {
	cases := []struct {
		zoneID    string
		complaint models.ComplaintType
		want      models.TreeKey
	}{
		{"chest.center", models.ComplaintPain, models.TreeCardiacChest},
		{"head.front", models.ComplaintPain, models.TreeHeadache},
		{"abdomen.lower_right", models.ComplaintPain, models.TreeAbdominal},
		{"arm.left.wrist", models.ComplaintPain, models.TreeMusculoskeletal},
		{"", models.ComplaintBreathing, models.TreeRespiratory},
		{"", models.ComplaintFever, models.TreeFever},
		{"", models.ComplaintGeneral, models.TreeGeneric},
	}
	for _, c := range cases {
		if got := TreeKeyFor(c.zoneID, c.complaint); got != c.want {
			t.Errorf("TreeKeyFor(%q, %q) = %q, want %q", c.zoneID, c.complaint, got, c.want)
		}
	}
}

func TestAllRefinementTargetsInTaxonomy(t *testing.T) {
	r := NewResolver()
	for broad, ref := range r.refinements {
		if _, err := r.walk(broad); err != nil {
			t.Errorf("broad zone %q missing from taxonomy: %v", broad, err)
		}
		for _, opt := range ref.Options {
			if _, err := r.walk(opt.ZoneID); err != nil {
				t.Errorf("refinement target %q of %q missing from taxonomy: %v", opt.ZoneID, broad, err)
			}
		}
	}
}
