//go:build property

package classifier

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rajasatyajit/EcoScan/internal/models"
)

var levels = []string{
	models.LevelLow, models.LevelMedium, models.LevelHigh, models.LevelMinimal,
	models.LevelModerate, models.LevelPartial, models.LevelNone,
	models.LevelExcellent, models.LevelFair, models.LevelPoor, "", "Unknown",
}

var gradeRank = map[models.Grade]int{
	models.GradeA: 4,
	models.GradeB: 3,
	models.GradeC: 2,
	models.GradeD: 1,
	models.GradeE: 0,
}

func TestGradeForScore_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("grade never improves as score decreases", prop.ForAll(
		func(a, b int) bool {
			hi, lo := a, b
			if lo > hi {
				hi, lo = lo, hi
			}
			return gradeRank[GradeForScore(hi)] >= gradeRank[GradeForScore(lo)]
		},
		gen.IntRange(-10, 110),
		gen.IntRange(-10, 110),
	))

	properties.Property("grade is always A through E", prop.ForAll(
		func(score int) bool {
			return GradeForScore(score).Valid()
		},
		gen.Int(),
	))

	properties.Property("classification is always one of three classes", prop.ForAll(
		func(li, di int) bool {
			switch ClassifyImpact(models.Dimensions[di], levels[li]) {
			case models.ImpactGood, models.ImpactNeutral, models.ImpactBad:
				return true
			}
			return false
		},
		gen.IntRange(0, len(levels)-1),
		gen.IntRange(0, len(models.Dimensions)-1),
	))

	properties.TestingRun(t)
}
