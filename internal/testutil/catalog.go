package testutil

import "github.com/asteroid-belt/partmatch/internal/models"

// SampleCatalog returns a small mixed catalog of seals, blades and tapes
// with English and German names. Callers may modify the returned slice.
func SampleCatalog() []models.Product {
	return []models.Product{
		{Code: "SDS007H", Name: "Duro Seal W&H Miraflex CR-GRY"},
		{Code: "SDS2573", Name: "Foam Seal W&H Miraflex"},
		{Code: "SDS2574", Name: "Foam Seal W&H Miraflex length 320"},
		{Code: "SDS100", Name: "End Seal Bobst 20x8 rubber"},
		{Code: "SDS110", Name: "End Seal Bobst 21x8 rubber"},
		{Code: "SDS200", Name: "Side Seal Novaflex 15x4"},
		{Code: "SDS008", Name: "Duro Seal Fischer & Krecke grey"},
		{Code: "BLD040", Name: "Doctor Blade stainless 40x0.2"},
		{Code: "BLD042", Name: "Doctor Blade stainless 42x0.2"},
		{Code: "BLD060", Name: "Rakel Edelstahl 60x0.15", DisplayName: "Doctor Blade 60"},
		{Code: "TPE12", Name: "Foam Tape adhesive 12x3", Description: "Grey PE foam"},
		{Code: "TPE19", Name: "Klebeband Schaum 19x3"},
		{Code: "FLT10", Name: "Felt Strip 10x2"},
		{Code: "", Name: "Dichtung Sonderanfertigung"},
	}
}
