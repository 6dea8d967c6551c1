package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rajasatyajit/EcoScan/config"
	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
	"github.com/rajasatyajit/EcoScan/internal/models"
)

const (
	// SourceOpenFoodFacts names the remote source in logs and metrics
	SourceOpenFoodFacts = "openfoodfacts"

	// PlaceholderImage is used when the remote record has no image
	PlaceholderImage = "https://placehold.co/400x400?text=No+Image"

	unknownName  = "Unknown Product"
	unknownBrand = "Unknown Brand"

	// maxBodyBytes caps how much of a product response is read
	maxBodyBytes = 4 << 20
)

// grade to score estimate when the record carries no numeric score
var gradeScores = map[string]int{"a": 95, "b": 75, "c": 55, "d": 35, "e": 15}

const defaultEstimatedScore = 20

// OFFResponse is the Open Food Facts v0 product envelope
type OFFResponse struct {
	Status  int         `json:"status"`
	Product *OFFProduct `json:"product,omitempty"`
}

// OFFProduct is the subset of an Open Food Facts product record we map
type OFFProduct struct {
	ProductName    string         `json:"product_name,omitempty"`
	Brands         string         `json:"brands,omitempty"`
	ImageURL       string         `json:"image_url,omitempty"`
	EcoscoreScore  any            `json:"ecoscore_score,omitempty"`
	EcoscoreGrade  string         `json:"ecoscore_grade,omitempty"`
	NutrientLevels map[string]any `json:"nutrient_levels,omitempty"`
	ImpactTags     []string       `json:"environment_impact_level_tags,omitempty"`
}

// OpenFoodFactsSource looks products up in the Open Food Facts database
type OpenFoodFactsSource struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewOpenFoodFactsSource creates a remote source from resolver settings
func NewOpenFoodFactsSource(cfg config.ResolverConfig) *OpenFoodFactsSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenFoodFactsSource{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name returns the source name
func (s *OpenFoodFactsSource) Name() string {
	return SourceOpenFoodFacts
}

// Lookup fetches one product. Every failure, including an unknown product,
// comes back as a ResolveError.
func (s *OpenFoodFactsSource) Lookup(ctx context.Context, id string) (*models.Product, error) {
	endpoint := fmt.Sprintf("%s/%s.json", s.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, s.fail("request", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.fail("fetch", fmt.Errorf("%w: %v", apperrors.ErrRemoteUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, s.fail("fetch", fmt.Errorf("%w: HTTP %d", apperrors.ErrRemoteUnavailable, resp.StatusCode))
	}

	var envelope OFFResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&envelope); err != nil {
		return nil, s.fail("decode", err)
	}

	if envelope.Status != 1 || envelope.Product == nil {
		return nil, s.fail("lookup", apperrors.ErrUnknownProduct)
	}

	return MapOpenFoodFacts(id, envelope.Product), nil
}

func (s *OpenFoodFactsSource) fail(stage string, err error) error {
	return apperrors.ResolveError{Source: SourceOpenFoodFacts, Stage: stage, Err: err}
}

// MapOpenFoodFacts maps a raw record into the canonical product.
// Plastic and ethics have no upstream signal and are constant; carbon uses
// the saturated-fat nutrient level as a coarse proxy.
func MapOpenFoodFacts(id string, raw *OFFProduct) *models.Product {
	if raw == nil {
		raw = &OFFProduct{}
	}

	satFat, _ := raw.NutrientLevels["saturated-fat"].(string)

	p := &models.Product{
		ID:    id,
		Name:  orDefault(raw.ProductName, unknownName),
		Brand: orDefault(raw.Brands, unknownBrand),
		Image: orDefault(raw.ImageURL, PlaceholderImage),
		Score: estimateScore(raw),
		Grade: mapGrade(raw.EcoscoreGrade),
		Impact: models.Impact{
			Carbon:        models.LevelMedium,
			Plastic:       models.LevelModerate,
			Recyclability: models.LevelPartial,
			Ethics:        models.LevelFair,
		},
		Details: models.Details{
			CarbonValue:  "Moderate impact",
			PlasticValue: "Standard packaging",
			EthicsValue:  "Standard sourcing",
		},
	}

	if satFat == "low" {
		p.Impact.Carbon = models.LevelLow
	}
	if satFat != "" {
		p.Details.CarbonValue = satFat + " impact"
	}
	if len(raw.ImpactTags) > 0 {
		p.Impact.Recyclability = models.LevelHigh
	}

	return p
}

func estimateScore(raw *OFFProduct) int {
	if v, ok := raw.EcoscoreScore.(float64); ok && !math.IsNaN(v) {
		return clampScore(int(math.Round(v)))
	}
	if score, ok := gradeScores[strings.ToLower(raw.EcoscoreGrade)]; ok {
		return score
	}
	return defaultEstimatedScore
}

func mapGrade(grade string) models.Grade {
	g := models.Grade(strings.ToUpper(grade))
	if g.Valid() {
		return g
	}
	return models.GradeE
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
