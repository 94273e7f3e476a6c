package triage

import (
	"sort"
	"strings"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

// buildDifferentials runs the fixed per-location rule table.
// Entries are emitted in rule order; rankDifferentials sorts them.
func buildDifferentials(f features) []models.Differential {
	var out []models.Differential

	switch f.region {
	case "chest":
		cardiacPattern := containsAny(f.radiation, "left-arm", "right-arm", "jaw") ||
			containsAny(f.quality, "crushing", "pressure")
		if f.intensity >= 6 && cardiacPattern {
			out = append(out, models.Differential{
				Condition:   "Acute coronary syndrome (URGENT)",
				Probability: models.ProbabilityHigh,
				Supporting:  chestSupport(f),
				Urgency:     models.UrgencyEmergency,
			})
		}
		if containsAny(f.quality, "tearing") || answerYes(f.answers, "chest.tearing_back") {
			out = append(out, models.Differential{
				Condition:   "Aortic dissection",
				Probability: models.ProbabilityLow,
				Supporting:  []string{"tearing quality", "radiation to back"},
				Urgency:     models.UrgencyEmergency,
			})
		}
		if answerYes(f.answers, "chest.breathless") {
			out = append(out, models.Differential{
				Condition:   "Pulmonary embolism",
				Probability: models.ProbabilityConsider,
				Supporting:  []string{"dyspnea at rest"},
				Urgency:     models.UrgencyUrgent,
			})
		}
		out = append(out, models.Differential{
			Condition:   "Musculoskeletal chest pain",
			Probability: models.ProbabilityModerate,
			Supporting:  []string{"chest wall pain"},
			Contra:      chestSupport(f),
		})
		out = append(out, models.Differential{
			Condition:   "Gastroesophageal reflux",
			Probability: models.ProbabilityConsider,
			Supporting:  []string{"burning quality"},
		})

	case "head":
		if f.suddenOnset && f.intensity >= 8 {
			out = append(out, models.Differential{
				Condition:   "Subarachnoid hemorrhage (URGENT)",
				Probability: models.ProbabilityHigh,
				Supporting:  []string{"thunderclap onset", "severe intensity"},
				Urgency:     models.UrgencyEmergency,
			})
		}
		if answerYes(f.answers, "head.fever_stiff_neck") {
			out = append(out, models.Differential{
				Condition:   "Meningitis",
				Probability: models.ProbabilityModerate,
				Supporting:  []string{"fever", "neck stiffness"},
				Urgency:     models.UrgencyEmergency,
			})
		}
		out = append(out, models.Differential{
			Condition:   "Migraine",
			Probability: models.ProbabilityModerate,
			Supporting:  []string{"recurrent headache pattern"},
		})
		out = append(out, models.Differential{
			Condition:   "Tension-type headache",
			Probability: models.ProbabilityModerate,
			Supporting:  []string{"gradual onset", "band-like distribution"},
		})

	case "abdomen":
		if answerYes(f.answers, "abd.blood") {
			out = append(out, models.Differential{
				Condition:   "Gastrointestinal hemorrhage",
				Probability: models.ProbabilityHigh,
				Supporting:  []string{"visible blood or melena"},
				Urgency:     models.UrgencyEmergency,
			})
		}
		if answerYes(f.answers, "abd.rigid") {
			out = append(out, models.Differential{
				Condition:   "Surgical abdomen (perforation or obstruction)",
				Probability: models.ProbabilityModerate,
				Supporting:  []string{"rigid tender abdomen"},
				Urgency:     models.UrgencyEmergency,
			})
		}
		if f.intensity >= 6 {
			out = append(out, models.Differential{
				Condition:   "Appendicitis",
				Probability: models.ProbabilityModerate,
				Supporting:  []string{"localized abdominal pain"},
				Urgency:     models.UrgencyUrgent,
			})
		}
		out = append(out, models.Differential{
			Condition:   "Gastritis",
			Probability: models.ProbabilityModerate,
			Supporting:  []string{"epigastric discomfort"},
		})
		out = append(out, models.Differential{
			Condition:   "Viral gastroenteritis",
			Probability: models.ProbabilityConsider,
			Supporting:  []string{"vomiting", "diffuse cramping"},
		})

	case "arm", "leg", "back", "neck":
		if answerYes(f.answers, "msk.deformity") {
			out = append(out, models.Differential{
				Condition:   "Fracture or dislocation",
				Probability: models.ProbabilityModerate,
				Supporting:  []string{"visible deformity"},
				Urgency:     models.UrgencyUrgent,
			})
		}
		if answerYes(f.answers, "msk.injury") {
			out = append(out, models.Differential{
				Condition:   "Soft tissue injury (sprain or strain)",
				Probability: models.ProbabilityHigh,
				Supporting:  []string{"injury mechanism"},
			})
		} else {
			out = append(out, models.Differential{
				Condition:   "Overuse or degenerative pain",
				Probability: models.ProbabilityModerate,
				Supporting:  []string{"no injury mechanism"},
			})
		}
	}

	// Non-location complaints contribute from the answers alone.
	if _, ok := f.answers["fever.temp"]; ok {
		out = append(out, models.Differential{
			Condition:   "Viral febrile illness",
			Probability: models.ProbabilityModerate,
			Supporting:  []string{"measured fever"},
		})
		if answerYes(f.answers, "fever.rigors") {
			out = append(out, models.Differential{
				Condition:   "Bacterial infection",
				Probability: models.ProbabilityModerate,
				Supporting:  []string{"rigors"},
				Urgency:     models.UrgencySemiUrgent,
			})
		}
	}

	return out
}

func chestSupport(f features) []string {
	var s []string
	if f.intensity >= 8 {
		s = append(s, "severe pain")
	}
	if containsAny(f.quality, "crushing", "pressure") {
		s = append(s, "crushing or pressure quality")
	}
	if containsAny(f.radiation, "left-arm", "right-arm", "jaw") {
		s = append(s, "radiation to arm or jaw")
	}
	if f.suddenOnset {
		s = append(s, "sudden onset")
	}
	return s
}

// rankDifferentials sorts entries by urgency rank descending, then by
// probability rank descending. The sort is stable: equal-rank entries keep
// their rule-table insertion order, which downstream consumers rely on.
func rankDifferentials(list []models.Differential) []models.Differential {
	sort.SliceStable(list, func(i, j int) bool {
		ui, uj := models.UrgencyRank(list[i].Urgency), models.UrgencyRank(list[j].Urgency)
		if ui != uj {
			return ui > uj
		}
		return models.ProbabilityRank(list[i].Probability) > models.ProbabilityRank(list[j].Probability)
	})
	return list
}

// topConditionContains reports whether the highest-ranked differential's
// condition name contains the keyword, case-insensitively.
func topConditionContains(list []models.Differential, keyword string) bool {
	if len(list) == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(list[0].Condition), keyword)
}

// anyConditionContains reports whether any differential's condition name
// contains one of the keywords, case-insensitively.
func anyConditionContains(list []models.Differential, keywords ...string) bool {
	for _, d := range list {
		lc := strings.ToLower(d.Condition)
		for _, k := range keywords {
			if strings.Contains(lc, k) {
				return true
			}
		}
	}
	return false
}
