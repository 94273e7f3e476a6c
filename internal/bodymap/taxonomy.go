package bodymap

// zoneDef is a flat taxonomy entry used to build the tree at construction.
type zoneDef struct {
	path         string
	commonName   string
	clinicalName string
}

// taxonomyDefs is the static zone catalog. Paths are dot-separated and every
// intermediate segment must itself be defined.
var taxonomyDefs = []zoneDef{
	{"head", "head", "cranium"},
	{"head.front", "forehead", "frontal region"},
	{"head.back", "back of head", "occipital region"},
	{"head.temple_left", "left temple", "left temporal region"},
	{"head.temple_right", "right temple", "right temporal region"},
	{"head.face", "face", "facial region"},
	{"head.face.jaw", "jaw", "mandible"},

	{"neck", "neck", "cervical region"},
	{"neck.front", "front of neck", "anterior cervical region"},
	{"neck.back", "back of neck", "posterior cervical region"},

	{"chest", "chest", "thorax"},
	{"chest.center", "center of chest", "retrosternal region"},
	{"chest.left", "left chest", "left hemithorax"},
	{"chest.right", "right chest", "right hemithorax"},
	{"chest.upper", "upper chest", "superior thorax"},
	{"chest.lower", "lower chest", "inferior thorax"},

	{"abdomen", "belly", "abdomen"},
	{"abdomen.upper_right", "upper right belly", "right upper quadrant"},
	{"abdomen.upper_left", "upper left belly", "left upper quadrant"},
	{"abdomen.lower_right", "lower right belly", "right lower quadrant"},
	{"abdomen.lower_left", "lower left belly", "left lower quadrant"},
	{"abdomen.center", "center of belly", "periumbilical region"},
	{"abdomen.epigastric", "upper middle belly", "epigastrium"},

	{"back", "back", "dorsum"},
	{"back.upper", "upper back", "thoracic spine region"},
	{"back.lower", "lower back", "lumbar region"},

	{"arm", "arm", "upper limb"},
	{"arm.left", "left arm", "left upper limb"},
	{"arm.left.shoulder", "left shoulder", "left glenohumeral region"},
	{"arm.left.upper_arm", "left upper arm", "left brachium"},
	{"arm.left.elbow_anterior", "front of left elbow", "left antecubital fossa"},
	{"arm.left.forearm", "left forearm", "left antebrachium"},
	{"arm.left.wrist", "left wrist", "left carpus"},
	{"arm.left.hand", "left hand", "left manus"},
	{"arm.right", "right arm", "right upper limb"},
	{"arm.right.shoulder", "right shoulder", "right glenohumeral region"},
	{"arm.right.upper_arm", "right upper arm", "right brachium"},
	{"arm.right.elbow_anterior", "front of right elbow", "right antecubital fossa"},
	{"arm.right.forearm", "right forearm", "right antebrachium"},
	{"arm.right.wrist", "right wrist", "right carpus"},
	{"arm.right.hand", "right hand", "right manus"},

	{"leg", "leg", "lower limb"},
	{"leg.left", "left leg", "left lower limb"},
	{"leg.left.hip", "left hip", "left coxal region"},
	{"leg.left.thigh", "left thigh", "left femoral region"},
	{"leg.left.knee", "left knee", "left genual region"},
	{"leg.left.calf", "left calf", "left sural region"},
	{"leg.left.ankle", "left ankle", "left talocrural region"},
	{"leg.left.foot", "left foot", "left pes"},
	{"leg.right", "right leg", "right lower limb"},
	{"leg.right.hip", "right hip", "right coxal region"},
	{"leg.right.thigh", "right thigh", "right femoral region"},
	{"leg.right.knee", "right knee", "right genual region"},
	{"leg.right.calf", "right calf", "right sural region"},
	{"leg.right.ankle", "right ankle", "right talocrural region"},
	{"leg.right.foot", "right foot", "right pes"},

	{"pelvis", "pelvis", "pelvic region"},
	{"skin", "skin", "integument"},
}

// buildTaxonomy constructs the tree from taxonomyDefs. It panics on a
// malformed catalog (missing intermediate segment) so bad static data fails
// at construction, not at lookup time.
func buildTaxonomy() *node {
	root := &node{children: make(map[string]*node)}
	for _, def := range taxonomyDefs {
		cur := root
		segs := splitPath(def.path)
		for i, seg := range segs {
			child, ok := cur.children[seg]
			if !ok {
				if i != len(segs)-1 {
					panic("bodymap: taxonomy entry " + def.path + " missing intermediate segment " + seg)
				}
				child = &node{children: make(map[string]*node)}
				cur.children[seg] = child
			}
			cur = child
		}
		cur.commonName = def.commonName
		cur.clinicalName = def.clinicalName
	}
	return root
}

func splitPath(p string) []string {
	var segs []string
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '.' {
			segs = append(segs, p[start:i])
			start = i + 1
		}
	}
	return segs
}

// buildRefinements enumerates the broad zones that require interactive
// narrowing before intake can continue.
func buildRefinements() map[string]Refinement {
	return map[string]Refinement{
		"chest": {
			Message:     "Where in your chest is the problem?",
			MessageUrdu: "Seenay mein masla kahan hai?",
			Options: []SubZoneOption{
				{ZoneID: "chest.center", Label: "Center"},
				{ZoneID: "chest.left", Label: "Left side"},
				{ZoneID: "chest.right", Label: "Right side"},
				{ZoneID: "chest.upper", Label: "Upper chest"},
				{ZoneID: "chest.lower", Label: "Lower chest"},
			},
		},
		"abdomen": {
			Message:     "Which part of your belly hurts?",
			MessageUrdu: "Pait ka kaun sa hissa dard karta hai?",
			Options: []SubZoneOption{
				{ZoneID: "abdomen.upper_right", Label: "Upper right"},
				{ZoneID: "abdomen.upper_left", Label: "Upper left"},
				{ZoneID: "abdomen.lower_right", Label: "Lower right"},
				{ZoneID: "abdomen.lower_left", Label: "Lower left"},
				{ZoneID: "abdomen.center", Label: "Around the navel"},
				{ZoneID: "abdomen.epigastric", Label: "Upper middle"},
			},
		},
		"head": {
			Message:     "Where on your head?",
			MessageUrdu: "Sar par kahan?",
			Options: []SubZoneOption{
				{ZoneID: "head.front", Label: "Forehead"},
				{ZoneID: "head.back", Label: "Back of head"},
				{ZoneID: "head.temple_left", Label: "Left temple"},
				{ZoneID: "head.temple_right", Label: "Right temple"},
				{ZoneID: "head.face", Label: "Face"},
			},
		},
		"arm.left": {
			Message:     "Where on your left arm?",
			MessageUrdu: "Bayen bazu par kahan?",
			Options: []SubZoneOption{
				{ZoneID: "arm.left.shoulder", Label: "Shoulder"},
				{ZoneID: "arm.left.upper_arm", Label: "Upper arm"},
				{ZoneID: "arm.left.elbow_anterior", Label: "Front of elbow"},
				{ZoneID: "arm.left.forearm", Label: "Forearm"},
				{ZoneID: "arm.left.wrist", Label: "Wrist"},
				{ZoneID: "arm.left.hand", Label: "Hand"},
			},
		},
		"arm.right": {
			Message:     "Where on your right arm?",
			MessageUrdu: "Dayen bazu par kahan?",
			Options: []SubZoneOption{
				{ZoneID: "arm.right.shoulder", Label: "Shoulder"},
				{ZoneID: "arm.right.upper_arm", Label: "Upper arm"},
				{ZoneID: "arm.right.elbow_anterior", Label: "Front of elbow"},
				{ZoneID: "arm.right.forearm", Label: "Forearm"},
				{ZoneID: "arm.right.wrist", Label: "Wrist"},
				{ZoneID: "arm.right.hand", Label: "Hand"},
			},
		},
		"leg.left": {
			Message:     "Where on your left leg?",
			MessageUrdu: "Bayen taang par kahan?",
			Options: []SubZoneOption{
				{ZoneID: "leg.left.hip", Label: "Hip"},
				{ZoneID: "leg.left.thigh", Label: "Thigh"},
				{ZoneID: "leg.left.knee", Label: "Knee"},
				{ZoneID: "leg.left.calf", Label: "Calf"},
				{ZoneID: "leg.left.ankle", Label: "Ankle"},
				{ZoneID: "leg.left.foot", Label: "Foot"},
			},
		},
		"leg.right": {
			Message:     "Where on your right leg?",
			MessageUrdu: "Dayen taang par kahan?",
			Options: []SubZoneOption{
				{ZoneID: "leg.right.hip", Label: "Hip"},
				{ZoneID: "leg.right.thigh", Label: "Thigh"},
				{ZoneID: "leg.right.knee", Label: "Knee"},
				{ZoneID: "leg.right.calf", Label: "Calf"},
				{ZoneID: "leg.right.ankle", Label: "Ankle"},
				{ZoneID: "leg.right.foot", Label: "Foot"},
			},
		},
	}
}
