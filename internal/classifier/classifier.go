package classifier

import (
	"github.com/rajasatyajit/EcoScan/internal/models"
)

// grade bands, checked top down
var gradeBands = []struct {
	min   int
	grade models.Grade
}{
	{80, models.GradeA},
	{60, models.GradeB},
	{40, models.GradeC},
	{20, models.GradeD},
}

// impact levels per dimension; anything not listed classifies as bad
var impactLevels = map[models.Dimension]map[string]models.ImpactClass{
	models.DimensionCarbon: {
		models.LevelLow:    models.ImpactGood,
		models.LevelMedium: models.ImpactNeutral,
		models.LevelHigh:   models.ImpactBad,
	},
	models.DimensionPlastic: {
		models.LevelMinimal:  models.ImpactGood,
		models.LevelModerate: models.ImpactNeutral,
		models.LevelHigh:     models.ImpactBad,
	},
	models.DimensionRecyclability: {
		models.LevelHigh:    models.ImpactGood,
		models.LevelPartial: models.ImpactNeutral,
		models.LevelNone:    models.ImpactBad,
	},
	models.DimensionEthics: {
		models.LevelExcellent: models.ImpactGood,
		models.LevelFair:      models.ImpactNeutral,
		models.LevelPoor:      models.ImpactBad,
	},
}

// GradeForScore maps a 0-100 score to its letter grade
func GradeForScore(score int) models.Grade {
	for _, band := range gradeBands {
		if score >= band.min {
			return band.grade
		}
	}
	return models.GradeE
}

// ClassifyImpact reads a qualitative level for one dimension.
// High is good for recyclability and bad for carbon and plastic.
func ClassifyImpact(dim models.Dimension, level string) models.ImpactClass {
	if class, ok := impactLevels[dim][level]; ok {
		return class
	}
	return models.ImpactBad
}

// ClassifyProduct classifies every impact dimension of a product
func ClassifyProduct(p *models.Product) map[models.Dimension]models.ImpactClass {
	out := make(map[models.Dimension]models.ImpactClass, len(models.Dimensions))
	if p == nil {
		return out
	}
	for _, dim := range models.Dimensions {
		out[dim] = ClassifyImpact(dim, p.Impact.Level(dim))
	}
	return out
}

// Consistent reports whether a product's grade matches its score banding.
// Source-asserted grades may legitimately disagree.
func Consistent(p *models.Product) bool {
	return p != nil && GradeForScore(p.Score) == p.Grade
}
