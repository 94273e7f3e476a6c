package questionbank

import "github.com/BTreeMap/IntakePipe/internal/models"

// answeredYes reports whether a prior answer is affirmative.
func answeredYes(answers map[string]string, id string) bool {
	v := answers[id]
	return v == string(models.AnswerYes) || v == "yes"
}

// buildTrees returns the full static complaint tree catalog. Question order
// within a tree is the order patients see.
func buildTrees() []*ComplaintTree {
	return []*ComplaintTree{
		cardiacChestTree(),
		headacheTree(),
		abdominalTree(),
		respiratoryTree(),
		musculoskeletalTree(),
		feverTree(),
		skinTree(),
		mentalStateTree(),
		genericTree(),
	}
}

func cardiacChestTree() *ComplaintTree {
	return &ComplaintTree{
		Key:             models.TreeCardiacChest,
		MinimumComplete: 5,
		Questions: []Question{
			{
				ID: "chest.duration", Prompt: "How long has the chest pain been present?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"under_15_min", "under_1_hour", "under_24_hours", "days", "weeks_or_more"},
			},
			{
				ID: "chest.onset", Prompt: "Did the pain start suddenly or build up gradually?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"sudden", "gradual"},
			},
			{
				ID: "chest.quality", Prompt: "How would you describe the pain?",
				Response: models.ResponseMulti, Mandatory: true,
				Options: []string{"crushing", "pressure", "sharp", "burning", "tearing", "dull"},
			},
			{
				ID: "chest.radiation", Prompt: "Does the pain spread anywhere?",
				Response: models.ResponseMulti, Mandatory: true,
				Options: []string{"left-arm", "right-arm", "jaw", "back", "none"},
			},
			{
				ID: "chest.exertion", Prompt: "Does the pain get worse with physical effort?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "chest.sweating", Prompt: "Are you sweating or feeling nauseous with the pain?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "diaphoresis-with-chest-pain", Severity: "critical", Action: ActionEscalate,
				},
			},
			{
				ID: "chest.breathless", Prompt: "Are you short of breath at rest?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "dyspnea-at-rest", Severity: "critical", Action: ActionStopIntake,
				},
			},
			{
				ID: "chest.prior_mi", Prompt: "Have you had a heart attack or heart procedure before?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "chest.tearing_back", Prompt: "Is the pain tearing and going through to your back?",
				Response: models.ResponseYesNo, Mandatory: false,
				Condition: func(a map[string]string) bool { return a["chest.quality"] != "" },
				RedFlag: &RedFlagCheck{
					Flag: "possible-aortic-dissection", Severity: "critical", Action: ActionStopIntake,
				},
			},
		},
	}
}

func headacheTree() *ComplaintTree {
	return &ComplaintTree{
		Key:             models.TreeHeadache,
		MinimumComplete: 5,
		Questions: []Question{
			{
				ID: "head.onset", Prompt: "Did the headache reach full strength within a minute?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "thunderclap-onset", Severity: "critical", Action: ActionStopIntake,
				},
			},
			{
				ID: "head.worst_ever", Prompt: "Is this the worst headache of your life?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "worst-headache-of-life", Severity: "critical", Action: ActionEscalate,
				},
			},
			{
				ID: "head.duration", Prompt: "How long have you had this headache?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"under_1_hour", "hours", "days", "weeks_or_more"},
			},
			{
				ID: "head.fever_stiff_neck", Prompt: "Do you have fever with a stiff neck?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "meningism", Severity: "critical", Action: ActionStopIntake,
				},
			},
			{
				ID: "head.vision", Prompt: "Any changes in your vision?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "head.trauma", Prompt: "Did you hit your head recently?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "head.trauma_loc", Prompt: "Did you black out after hitting your head?",
				Response: models.ResponseYesNo, Mandatory: false,
				Condition: func(a map[string]string) bool { return answeredYes(a, "head.trauma") },
				RedFlag: &RedFlagCheck{
					Flag: "post-traumatic-loss-of-consciousness", Severity: "critical", Action: ActionEscalate,
				},
			},
		},
	}
}

func abdominalTree() *ComplaintTree {
	return &ComplaintTree{
		Key:             models.TreeAbdominal,
		MinimumComplete: 5,
		Questions: []Question{
			{
				ID: "abd.duration", Prompt: "How long has your belly hurt?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"under_6_hours", "under_24_hours", "days", "weeks_or_more"},
			},
			{
				ID: "abd.constant", Prompt: "Is the pain constant or does it come and go?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"constant", "comes_and_goes"},
			},
			{
				ID: "abd.vomiting", Prompt: "Have you vomited?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "abd.blood", Prompt: "Have you seen blood in vomit or stool, or black tarry stool?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "gi-bleeding", Severity: "critical", Action: ActionEscalate,
				},
			},
			{
				ID: "abd.rigid", Prompt: "Is your belly hard and extremely tender to touch?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "peritoneal-signs", Severity: "critical", Action: ActionStopIntake,
				},
			},
			{
				ID: "abd.last_meal", Prompt: "When did you last manage to eat?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"today", "yesterday", "two_days_or_more"},
			},
			{
				ID: "abd.pregnancy", Prompt: "Is there any chance you are pregnant?",
				Response: models.ResponseYesNo, Mandatory: false,
				Condition: func(a map[string]string) bool { return a["abd.duration"] != "" },
			},
		},
	}
}

func respiratoryTree() *ComplaintTree {
	return &ComplaintTree{
		Key:             models.TreeRespiratory,
		MinimumComplete: 4,
		Questions: []Question{
			{
				ID: "resp.duration", Prompt: "How long have you had breathing trouble?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"under_1_hour", "hours", "days", "weeks_or_more"},
			},
			{
				ID: "resp.at_rest", Prompt: "Are you breathless sitting still?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "dyspnea-at-rest", Severity: "critical", Action: ActionStopIntake,
				},
			},
			{
				ID: "resp.cough", Prompt: "Do you have a cough?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "resp.cough_blood", Prompt: "Have you coughed up blood?",
				Response: models.ResponseYesNo, Mandatory: false,
				Condition: func(a map[string]string) bool { return answeredYes(a, "resp.cough") },
				RedFlag: &RedFlagCheck{
					Flag: "hemoptysis", Severity: "critical", Action: ActionEscalate,
				},
			},
			{
				ID: "resp.wheeze", Prompt: "Do you hear wheezing when you breathe?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "resp.fever", Prompt: "Do you have fever with it?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
		},
	}
}

func musculoskeletalTree() *ComplaintTree {
	return &ComplaintTree{
		Key:             models.TreeMusculoskeletal,
		MinimumComplete: 4,
		Questions: []Question{
			{
				ID: "msk.injury", Prompt: "Did this start with an injury or fall?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "msk.weight_bearing", Prompt: "Can you put weight on it or use it normally?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "msk.deformity", Prompt: "Does the area look bent, deformed or out of place?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "visible-deformity", Severity: "warning", Action: ActionEscalate,
				},
			},
			{
				ID: "msk.numbness", Prompt: "Any numbness or tingling below the painful area?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "neurovascular-compromise", Severity: "critical", Action: ActionEscalate,
				},
			},
			{
				ID: "msk.swelling", Prompt: "Is there swelling or bruising?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "msk.duration", Prompt: "How long has this been going on?",
				Response: models.ResponseSingle, Mandatory: false,
				Condition: func(a map[string]string) bool { return !answeredYes(a, "msk.injury") },
				Options:   []string{"days", "weeks", "months_or_more"},
			},
		},
	}
}

func feverTree() *ComplaintTree {
	return &ComplaintTree{
		Key:             models.TreeFever,
		MinimumComplete: 4,
		Questions: []Question{
			{
				ID: "fever.temp", Prompt: "What is your measured temperature in Fahrenheit?",
				Response: models.ResponseNumeric, Mandatory: true,
				Min: 90, Max: 110,
			},
			{
				ID: "fever.duration", Prompt: "How many days have you had fever?",
				Response: models.ResponseNumeric, Mandatory: true,
				Min: 0, Max: 90,
			},
			{
				ID: "fever.rigors", Prompt: "Do you have shaking chills?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "fever.rash", Prompt: "Do you have a new rash with the fever?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "fever-with-rash", Severity: "warning", Action: ActionEscalate,
				},
			},
			{
				ID: "fever.fluids", Prompt: "Are you able to keep fluids down?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "fever.confusion", Prompt: "Has anyone noticed you being confused or very drowsy?",
				Response: models.ResponseYesNo, Mandatory: false,
				Condition: func(a map[string]string) bool { return a["fever.duration"] != "" },
				RedFlag: &RedFlagCheck{
					Flag: "altered-mental-state-with-fever", Severity: "critical", Action: ActionStopIntake,
				},
			},
		},
	}
}

func skinTree() *ComplaintTree {
	return &ComplaintTree{
		Key:             models.TreeSkin,
		MinimumComplete: 3,
		Questions: []Question{
			{
				ID: "skin.duration", Prompt: "How long has the skin problem been there?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"hours", "days", "weeks", "months_or_more"},
			},
			{
				ID: "skin.spreading", Prompt: "Is it spreading quickly?",
				Response: models.ResponseYesNo, Mandatory: true,
				RedFlag: &RedFlagCheck{
					Flag: "rapidly-spreading-lesion", Severity: "warning", Action: ActionEscalate,
				},
			},
			{
				ID: "skin.painful", Prompt: "Is the area painful or hot to touch?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "skin.blisters", Prompt: "Are there blisters or broken skin?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
		},
	}
}

func mentalStateTree() *ComplaintTree {
	return &ComplaintTree{
		Key:             models.TreeMentalState,
		MinimumComplete: 3,
		Questions: []Question{
			{
				ID: "mind.duration", Prompt: "How long have you been feeling this way?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"days", "weeks", "months_or_more"},
			},
			{
				ID: "mind.sleep", Prompt: "How is your sleep?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"normal", "trouble_falling_asleep", "waking_early", "sleeping_too_much"},
			},
			{
				ID: "mind.function", Prompt: "Is this stopping you from work or daily activities?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "mind.safety", Prompt: "Do you feel safe at home?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
		},
	}
}

func genericTree() *ComplaintTree {
	return &ComplaintTree{
		Key:             models.TreeGeneric,
		MinimumComplete: 3,
		Questions: []Question{
			{
				ID: "gen.duration", Prompt: "How long has this been bothering you?",
				Response: models.ResponseSingle, Mandatory: true,
				Options: []string{"hours", "days", "weeks", "months_or_more"},
			},
			{
				ID: "gen.severity", Prompt: "On a scale of 1 to 10, how bad is it?",
				Response: models.ResponseScale, Mandatory: true,
				Min: 1, Max: 10,
			},
			{
				ID: "gen.worse", Prompt: "Is it getting worse?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
			{
				ID: "gen.tried", Prompt: "Have you tried any treatment for it?",
				Response: models.ResponseYesNo, Mandatory: true,
			},
		},
	}
}
