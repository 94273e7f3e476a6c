package triage

import "github.com/BTreeMap/IntakePipe/internal/models"

// primaryActions is the fixed priority-1 recommendation per urgency level.
var primaryActions = map[models.UrgencyLevel]models.Recommendation{
	models.UrgencyEmergency: {
		Priority: 1,
		Text:     "Call Rescue 1122 now or have someone take you to the nearest emergency department.",
		TextUrdu: "Foran Rescue 1122 call karein ya kisi ke saath qareebi emergency department jayein.",
	},
	models.UrgencyUrgent: {
		Priority: 1,
		Text:     "Go to an emergency department today.",
		TextUrdu: "Aaj hi emergency department jayein.",
	},
	models.UrgencySemiUrgent: {
		Priority: 1,
		Text:     "Schedule an appointment with your doctor within the next 24-48 hours.",
		TextUrdu: "Agle 24-48 ghanton mein apne doctor se appointment lein.",
	},
	models.UrgencyRoutine: {
		Priority: 1,
		Text:     "Book a routine appointment with your doctor.",
		TextUrdu: "Apne doctor se aam appointment book karein.",
	},
}

// specialtyReferrals is the priority-2 table, gated on location and on the
// urgency not being an emergency (emergencies go to the ED, not a clinic).
var specialtyReferrals = map[string]models.Recommendation{
	"chest": {
		Priority: 2,
		Text:     "Ask for a cardiology review.",
		TextUrdu: "Cardiology se muaina karwayen.",
	},
	"head": {
		Priority: 2,
		Text:     "Ask for a neurology review.",
		TextUrdu: "Neurology se muaina karwayen.",
	},
	"abdomen": {
		Priority: 2,
		Text:     "Ask for a gastroenterology review.",
		TextUrdu: "Gastroenterology se muaina karwayen.",
	},
	"arm": {
		Priority: 2,
		Text:     "Ask for an orthopedic review.",
		TextUrdu: "Orthopedic se muaina karwayen.",
	},
	"leg": {
		Priority: 2,
		Text:     "Ask for an orthopedic review.",
		TextUrdu: "Orthopedic se muaina karwayen.",
	},
	"back": {
		Priority: 2,
		Text:     "Ask for an orthopedic review.",
		TextUrdu: "Orthopedic se muaina karwayen.",
	},
}

// buildRecommendations assembles the prioritized list:
// priority 1 primary action, priority 2 conditional referral, priority 3
// self-care, priority 4 the always-last safety net.
func buildRecommendations(f features, r *models.TriageResult) []models.Recommendation {
	out := []models.Recommendation{primaryActions[r.Urgency]}

	if r.Urgency != models.UrgencyEmergency {
		if ref, ok := specialtyReferrals[f.region]; ok {
			out = append(out, ref)
		}
	}

	out = append(out, models.Recommendation{
		Priority: 3,
		Text:     "Keep a symptom diary: note when it happens, how long it lasts, and what makes it better or worse.",
		TextUrdu: "Alamaat ki diary rakhein: kab hoti hain, kitni der rehti hain, kis cheez se behtar ya kharab hoti hain.",
	})
	if f.intensity > 0 && f.intensity <= 5 {
		out = append(out, models.Recommendation{
			Priority: 3,
			Text:     "Over-the-counter pain relief such as paracetamol may help; follow the packet dosing.",
			TextUrdu: "Paracetamol jaisi aam dawa madad kar sakti hai; pack par di gayi miqdar follow karein.",
		})
	}

	out = append(out, models.Recommendation{
		Priority: 4,
		Text:     "If symptoms get worse, or new symptoms appear, seek care immediately.",
		TextUrdu: "Agar alamaat barh jayen ya nayi alamaat zahir hon to foran ilaaj ke liye jayein.",
	})
	return out
}

// urgencyFirstSteps is the mandatory first next-step per urgency level.
var urgencyFirstSteps = map[models.UrgencyLevel]models.NextStep{
	models.UrgencyEmergency:  {Step: "emergency_services", Reason: "urgency level emergency"},
	models.UrgencyUrgent:     {Step: "emergency_department_visit", Reason: "urgency level urgent"},
	models.UrgencySemiUrgent: {Step: "primary_care_appointment", Reason: "urgency level semi-urgent"},
	models.UrgencyRoutine:    {Step: "routine_appointment", Reason: "urgency level routine"},
}

// buildNextSteps derives the care pathway: the urgency-mandated first step
// plus diagnostic workup steps keyed off the ranked differential list.
func buildNextSteps(r *models.TriageResult) []models.NextStep {
	out := []models.NextStep{urgencyFirstSteps[r.Urgency]}

	if anyConditionContains(r.Differentials, "cardiac", "coronary") {
		out = append(out, models.NextStep{
			Step:   "cardiac_workup",
			Reason: "cardiac condition in differential (ECG, troponin)",
		})
	}
	if anyConditionContains(r.Differentials, "hemorrhage", "stroke") {
		out = append(out, models.NextStep{
			Step:   "neuroimaging",
			Reason: "hemorrhage or stroke in differential (CT head)",
		})
	}
	if topConditionContains(r.Differentials, "surgical") {
		out = append(out, models.NextStep{
			Step:   "surgical_consult",
			Reason: "top-ranked differential is surgical",
		})
	}
	return out
}
