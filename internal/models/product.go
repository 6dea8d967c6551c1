package models

// Grade is a letter grade, A (best) through E (worst)
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
)

// Valid reports whether g is one of A through E
func (g Grade) Valid() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeD, GradeE:
		return true
	}
	return false
}

// Dimension names one axis of a product's impact vector
type Dimension string

const (
	DimensionCarbon        Dimension = "carbon"
	DimensionPlastic       Dimension = "plastic"
	DimensionRecyclability Dimension = "recyclability"
	DimensionEthics        Dimension = "ethics"
)

// Dimensions lists every impact dimension in display order
var Dimensions = []Dimension{DimensionCarbon, DimensionPlastic, DimensionRecyclability, DimensionEthics}

// ImpactClass is the good/neutral/bad reading of an impact level
type ImpactClass string

const (
	ImpactGood    ImpactClass = "good"
	ImpactNeutral ImpactClass = "neutral"
	ImpactBad     ImpactClass = "bad"
)

// Qualitative impact levels
const (
	LevelLow       = "Low"
	LevelMedium    = "Medium"
	LevelHigh      = "High"
	LevelMinimal   = "Minimal"
	LevelModerate  = "Moderate"
	LevelPartial   = "Partial"
	LevelNone      = "None"
	LevelExcellent = "Excellent"
	LevelFair      = "Fair"
	LevelPoor      = "Poor"
)

// Impact is the four-dimension impact vector
type Impact struct {
	Carbon        string `json:"carbon" yaml:"carbon"`               // Low, Medium, High
	Plastic       string `json:"plastic" yaml:"plastic"`             // Minimal, Moderate, High
	Recyclability string `json:"recyclability" yaml:"recyclability"` // High, Partial, None
	Ethics        string `json:"ethics" yaml:"ethics"`               // Excellent, Fair, Poor
}

// Level returns the level recorded for a dimension
func (i Impact) Level(dim Dimension) string {
	switch dim {
	case DimensionCarbon:
		return i.Carbon
	case DimensionPlastic:
		return i.Plastic
	case DimensionRecyclability:
		return i.Recyclability
	case DimensionEthics:
		return i.Ethics
	}
	return ""
}

// Details holds free-text detail strings per dimension
type Details struct {
	CarbonValue  string `json:"carbon_value" yaml:"carbon_value"`
	PlasticValue string `json:"plastic_value" yaml:"plastic_value"`
	EthicsValue  string `json:"ethics_value" yaml:"ethics_value"`
}

// Product is the canonical product every source is mapped into.
// Grade follows the score banding unless a source asserted it.
type Product struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	Brand   string  `json:"brand" yaml:"brand"`
	Image   string  `json:"image" yaml:"image"`
	Score   int     `json:"score" yaml:"score"`
	Grade   Grade   `json:"grade" yaml:"grade"`
	Impact  Impact  `json:"impact" yaml:"impact"`
	Details Details `json:"details" yaml:"details"`
}

// Snapshot returns the lightweight copy stored on scan events
func (p Product) Snapshot() *ProductSnapshot {
	return &ProductSnapshot{
		Name:  p.Name,
		Brand: p.Brand,
		Image: p.Image,
		Grade: p.Grade,
		Score: p.Score,
	}
}

// ProductSnapshot is the product summary captured at resolution time
type ProductSnapshot struct {
	Name  string `json:"name"`
	Brand string `json:"brand"`
	Image string `json:"image"`
	Grade Grade  `json:"grade"`
	Score int    `json:"score"`
}
