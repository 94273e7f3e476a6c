// Package bodymap resolves anatomical zone identifiers against a static
// hierarchical taxonomy.
//
// Broad zones resolve to a refinement request with enumerated sub-zone
// options; terminal zones resolve to a validated zone with laterality and
// clinical naming. The taxonomy walk is explicit: every dot-separated path
// segment is checked and an absent segment fails with a typed error naming
// the failing segment rather than a silent fallback.
package bodymap

import (
	"fmt"
	"strings"
)

// Laterality is the side classification derived from a zone path.
type Laterality string

const (
	LateralityLeft      Laterality = "left"
	LateralityRight     Laterality = "right"
	LateralityBilateral Laterality = "bilateral"
	LateralityMidline   Laterality = "midline"
)

// ZoneError reports a taxonomy walk failure at a specific path segment.
type ZoneError struct {
	ZoneID  string
	Segment string
}

func (e *ZoneError) Error() string {
	return fmt.Sprintf("invalid zone %q: unknown segment %q", e.ZoneID, e.Segment)
}

// node is one taxonomy entry. Children are keyed by path segment.
type node struct {
	commonName   string
	clinicalName string
	children     map[string]*node
}

// ResolvedZone is a validated terminal (or refinable) zone.
type ResolvedZone struct {
	ZoneID       string     `json:"zone_id"`
	CommonName   string     `json:"common_name"`
	ClinicalName string     `json:"clinical_name"`
	Laterality   Laterality `json:"laterality"`
	HasSubParts  bool       `json:"has_sub_parts"`
}

// SubZoneOption is one selectable refinement target.
type SubZoneOption struct {
	ZoneID string `json:"zone_id"`
	Label  string `json:"label"`
}

// Refinement asks the user to narrow a broad zone down.
type Refinement struct {
	Message     string          `json:"message"`
	MessageUrdu string          `json:"message_ur"`
	Options     []SubZoneOption `json:"options"`
}

// Resolution is the outcome of resolving a zone identifier: either a
// refinement request or a validated zone, never both.
type Resolution struct {
	NeedsRefinement bool          `json:"needsRefinement"`
	Refinement      *Refinement   `json:"refinement,omitempty"`
	Zone            *ResolvedZone `json:"zone,omitempty"`
}

// Resolver validates zone identifiers and maps them to complaint tree keys.
type Resolver struct {
	root        *node
	refinements map[string]Refinement
}

// NewResolver builds the resolver over the static taxonomy.
func NewResolver() *Resolver {
	return &Resolver{
		root:        buildTaxonomy(),
		refinements: buildRefinements(),
	}
}

// DeriveLaterality classifies a zone path by substring rule: a "left"
// segment maps left, "right" maps right, "center"/"central" maps bilateral,
// anything else is midline.
func DeriveLaterality(zoneID string) Laterality {
	lower := strings.ToLower(zoneID)
	switch {
	case strings.Contains(lower, "left"):
		return LateralityLeft
	case strings.Contains(lower, "right"):
		return LateralityRight
	case strings.Contains(lower, "center"), strings.Contains(lower, "central"):
		return LateralityBilateral
	default:
		return LateralityMidline
	}
}

// walk validates the dot-separated path segment by segment and returns the
// terminal node.
func (r *Resolver) walk(zoneID string) (*node, error) {
	if zoneID == "" {
		return nil, &ZoneError{ZoneID: zoneID, Segment: ""}
	}
	cur := r.root
	for _, seg := range strings.Split(zoneID, ".") {
		next, ok := cur.children[seg]
		if !ok {
			return nil, &ZoneError{ZoneID: zoneID, Segment: seg}
		}
		cur = next
	}
	return cur, nil
}

// Resolve looks a zone identifier up. Broad zones return a refinement
// request; valid terminal zones return laterality and clinical naming.
func (r *Resolver) Resolve(zoneID string) (Resolution, error) {
	if ref, ok := r.refinements[zoneID]; ok {
		// Still validate the path so typos in broad ids surface too.
		if _, err := r.walk(zoneID); err != nil {
			return Resolution{}, err
		}
		return Resolution{NeedsRefinement: true, Refinement: &ref}, nil
	}

	n, err := r.walk(zoneID)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{
		Zone: &ResolvedZone{
			ZoneID:       zoneID,
			CommonName:   n.commonName,
			ClinicalName: n.clinicalName,
			Laterality:   DeriveLaterality(zoneID),
			HasSubParts:  len(n.children) > 0,
		},
	}, nil
}

// Region returns the top-level region segment of a zone id ("chest",
// "abdomen", "arm", ...). It does not validate the path.
func Region(zoneID string) string {
	if i := strings.IndexByte(zoneID, '.'); i >= 0 {
		return zoneID[:i]
	}
	return zoneID
}
