package model

import (
	"regexp"
	"strings"
)

// Scoopable star classes.
var scoopable = map[string]bool{
	"K": true, "G": true, "B": true, "F": true, "O": true, "A": true, "M": true,
}

// IsScoopable reports whether a ship can refuel from a star of this class.
func IsScoopable(starType string) bool { return scoopable[starType] }

// Minimum sample spacing in metres, by genus.
var genusRanges = map[string]int{
	"$Codex_Ent_Aleoids_Genus_Name;":    150,
	"$Codex_Ent_Bacterial_Genus_Name;":  500,
	"$Codex_Ent_Cactoid_Genus_Name;":    300,
	"$Codex_Ent_Clypeus_Genus_Name;":    150,
	"$Codex_Ent_Conchas_Genus_Name;":    150,
	"$Codex_Ent_Electricae_Genus_Name;": 1000,
	"$Codex_Ent_Fonticulus_Genus_Name;": 500,
	"$Codex_Ent_Shrubs_Genus_Name;":     150,
	"$Codex_Ent_Fumerolas_Genus_Name;":  100,
	"$Codex_Ent_Fungoids_Genus_Name;":   300,
	"$Codex_Ent_Osseus_Genus_Name;":     800,
	"$Codex_Ent_Recepta_Genus_Name;":    150,
	"$Codex_Ent_Stratum_Genus_Name;":    500,
	"$Codex_Ent_Tubus_Genus_Name;":      800,
	"$Codex_Ent_Tussocks_Genus_Name;":   200,

	// Horizons-era structures.
	"$Codex_Ent_Cone_Name;":              100,
	"$Codex_Ent_Brancae_Name;":           100,
	"$Codex_Ent_Seed_Name;":              100,
	"$Codex_Ent_Ground_Struct_Ice_Name;": 100,
	"$Codex_Ent_Sphere_Name;":            100,
	"$Codex_Ent_Tube_Name;":              100,
	"$Codex_Ent_Vents_Name;":             100,
}

const (
	thargoidRange = 85
	defaultRange  = 50
)

// MinDistance returns the sample spacing the game requires for a genus.
func MinDistance(genusID string) int {
	if d, ok := genusRanges[genusID]; ok {
		return d
	}
	if strings.Contains(genusID, "Thargoid") {
		return thargoidRange
	}
	return defaultRange
}

var variantSuffix = regexp.MustCompile(`_\d+_[A-Za-z]_Name;$`)

// CanonicalGenusID maps a species or variant codex name such as
// "$Codex_Ent_Bacterial_12_A_Name;" to its genus id
// "$Codex_Ent_Bacterial_Genus_Name;". Other names are returned unchanged.
func CanonicalGenusID(name string) string {
	return variantSuffix.ReplaceAllString(name, "_Genus_Name;")
}
