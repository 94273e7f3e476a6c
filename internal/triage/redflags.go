package triage

import "github.com/BTreeMap/IntakePipe/internal/models"

// buildRedFlags runs the independent red-flag rule table. It
// is deliberately separate from the differential table: a flag fires on the
// finding itself, regardless of what the ranked list says.
func buildRedFlags(f features, enc *models.Encounter) []models.RedFlag {
	var out []models.RedFlag

	switch f.region {
	case "chest":
		if containsAny(f.radiation, "left-arm", "right-arm", "jaw") {
			out = append(out, models.RedFlag{
				Flag:         "chest pain radiating to arm or jaw",
				Significance: "classic pattern of cardiac ischemia",
				Action:       "emergency evaluation with ECG",
			})
		}
		if answerYes(f.answers, "chest.sweating") {
			out = append(out, models.RedFlag{
				Flag:         "diaphoresis with chest pain",
				Significance: "autonomic sign accompanying cardiac events",
				Action:       "emergency evaluation",
			})
		}
	case "head":
		if f.suddenOnset && f.intensity >= 8 {
			out = append(out, models.RedFlag{
				Flag:         "thunderclap headache",
				Significance: "possible subarachnoid hemorrhage",
				Action:       "immediate neuroimaging",
			})
		}
		if answerYes(f.answers, "head.fever_stiff_neck") {
			out = append(out, models.RedFlag{
				Flag:         "headache with fever and stiff neck",
				Significance: "possible meningitis",
				Action:       "emergency evaluation, do not delay",
			})
		}
	case "abdomen":
		if answerYes(f.answers, "abd.blood") {
			out = append(out, models.RedFlag{
				Flag:         "gastrointestinal bleeding",
				Significance: "risk of hemodynamic compromise",
				Action:       "emergency evaluation with blood count",
			})
		}
		if answerYes(f.answers, "abd.rigid") {
			out = append(out, models.RedFlag{
				Flag:         "rigid tender abdomen",
				Significance: "possible peritonitis",
				Action:       "immediate surgical assessment",
			})
		}
	}

	if answerYes(f.answers, "resp.at_rest") || answerYes(f.answers, "chest.breathless") {
		out = append(out, models.RedFlag{
			Flag:         "breathless at rest",
			Significance: "respiratory or cardiac decompensation",
			Action:       "emergency evaluation",
		})
	}
	if answerYes(f.answers, "msk.numbness") {
		out = append(out, models.RedFlag{
			Flag:         "numbness below injury",
			Significance: "possible neurovascular compromise",
			Action:       "urgent orthopedic assessment",
		})
	}
	if answerYes(f.answers, "fever.confusion") {
		out = append(out, models.RedFlag{
			Flag:         "confusion with fever",
			Significance: "possible sepsis or CNS infection",
			Action:       "emergency evaluation",
		})
	}

	// Flags the complaint tree already fired during intake are carried
	// through so the clinician sees one consolidated list.
	seen := map[string]bool{}
	for _, rf := range out {
		seen[rf.Flag] = true
	}
	for _, name := range enc.RedFlags {
		if seen[name] {
			continue
		}
		out = append(out, models.RedFlag{
			Flag:         name,
			Significance: "flagged during questioning",
			Action:       "clinician review",
		})
	}
	return out
}
