package bodymap

import "github.com/BTreeMap/IntakePipe/internal/models"

// regionTreeKeys maps a top-level body region to its complaint tree.
var regionTreeKeys = map[string]models.TreeKey{
	"chest":   models.TreeCardiacChest,
	"head":    models.TreeHeadache,
	"abdomen": models.TreeAbdominal,
	"neck":    models.TreeMusculoskeletal,
	"back":    models.TreeMusculoskeletal,
	"arm":     models.TreeMusculoskeletal,
	"leg":     models.TreeMusculoskeletal,
	"pelvis":  models.TreeAbdominal,
	"skin":    models.TreeSkin,
}

// complaintTreeKeys maps a non-pain complaint selection to its tree.
var complaintTreeKeys = map[models.ComplaintType]models.TreeKey{
	models.ComplaintBreathing:   models.TreeRespiratory,
	models.ComplaintFever:       models.TreeFever,
	models.ComplaintDigestive:   models.TreeAbdominal,
	models.ComplaintSkin:        models.TreeSkin,
	models.ComplaintMentalState: models.TreeMentalState,
	models.ComplaintInjury:      models.TreeMusculoskeletal,
}

// TreeKeyFor resolves a validated zone and the selected complaint to exactly
// one complaint tree key. Location takes precedence for pain complaints;
// unmapped combinations fall back to the generic tree.
func TreeKeyFor(zoneID string, complaint models.ComplaintType) models.TreeKey {
	if zoneID != "" {
		if key, ok := regionTreeKeys[Region(zoneID)]; ok {
			return key
		}
	}
	if key, ok := complaintTreeKeys[complaint]; ok {
		return key
	}
	return models.TreeGeneric
}
