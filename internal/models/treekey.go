// Package models defines the closed set of complaint tree keys.
package models

// TreeKey identifies one complaint question tree. The set is closed: zone and
// complaint mappings resolve to exactly one key, with TreeGeneric the only
// fallback for unmapped combinations.
type TreeKey string

const (
	TreeCardiacChest    TreeKey = "cardiac_chest"
	TreeHeadache        TreeKey = "headache"
	TreeAbdominal       TreeKey = "abdominal"
	TreeRespiratory     TreeKey = "respiratory"
	TreeMusculoskeletal TreeKey = "musculoskeletal"
	TreeFever           TreeKey = "fever"
	TreeSkin            TreeKey = "skin"
	TreeMentalState     TreeKey = "mental_state"
	TreeGeneric         TreeKey = "generic"
)

// IsValidTreeKey checks if the given key names a defined complaint tree.
func IsValidTreeKey(k TreeKey) bool {
	switch k {
	case TreeCardiacChest, TreeHeadache, TreeAbdominal, TreeRespiratory,
		TreeMusculoskeletal, TreeFever, TreeSkin, TreeMentalState, TreeGeneric:
		return true
	default:
		return false
	}
}
