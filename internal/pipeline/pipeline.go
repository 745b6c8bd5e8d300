package pipeline

import (
	"fmt"
	"log"
	"sync"

	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/features"
	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/predictor"
)

// Confidence labels for a prediction.
const (
	ConfidenceHigh   = "HIGH"   // location has its own training history
	ConfidenceMedium = "MEDIUM" // global fallback in use
)

// Version identifies the pipeline contract.
const Version = "1.0.0"

// Pipeline composes feature defaults, feature engineering, and the model
// predictor into the end-to-end prediction flow. All state is loaded once
// and immutable, so a single Pipeline may serve concurrent requests.
type Pipeline struct {
	defaults  *features.Defaults
	engineer  *features.Engineer
	predictor *predictor.Predictor
}

// Result is the full prediction record returned to callers.
type Result struct {
	PM25Predicted       float64 `json:"pm25_predicted"`
	AirQualityCategory  string  `json:"air_quality_category"`
	Confidence          string  `json:"confidence"`
	LocationID          string  `json:"location_id"`
	ModelUsed           string  `json:"model_used"`
	Message             string  `json:"message"`
	PM25LogScale        float64 `json:"pm25_log_scale"`
	NFeaturesUsed       int     `json:"n_features_used"`
	NHistoricalFeatures int     `json:"n_historical_features"`
	NCurrentFeatures    int     `json:"n_current_features"`
}

// Info describes the assembled pipeline.
type Info struct {
	Model               predictor.Info `json:"model"`
	AvailableLocations  []string       `json:"available_locations"`
	NTimeSeriesFeatures int            `json:"n_time_series_features"`
	PipelineVersion     string         `json:"pipeline_version"`
}

// New assembles a pipeline from already-loaded components.
func New(defaults *features.Defaults, engineer *features.Engineer, pred *predictor.Predictor) *Pipeline {
	return &Pipeline{
		defaults:  defaults,
		engineer:  engineer,
		predictor: pred,
	}
}

// Predict runs the four-step prediction sequence: historical lookup, feature
// engineering, merge with zero-fill, inference.
func (p *Pipeline) Predict(in features.RawInput, locationID string) (Result, error) {
	if locationID == "" {
		locationID = "global"
	}

	// Step 1: historical features. Known ids carry HIGH confidence, the
	// global fallback MEDIUM.
	historical := p.defaults.LocationFeatures(locationID)

	var confidence, message string
	if info, ok := p.defaults.LocationInfo(locationID); ok {
		confidence = ConfidenceHigh
		message = fmt.Sprintf("Using historical data from %s (%d training samples)", locationID, info.NSamples)
	} else {
		confidence = ConfidenceMedium
		message = fmt.Sprintf("New location - using global fallback (based on %d training location(s))",
			len(p.defaults.AvailableLocations()))
	}

	// Step 2: engineer current features from the raw input.
	current, err := p.engineer.ProcessUserInput(in)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}

	// Step 3: merge. Current observations are authoritative over stale
	// history; anything the model still expects is zero-filled.
	all := make(map[string]float64, len(historical)+len(current.Values))
	for k, v := range historical {
		all[k] = v
	}
	for k, v := range current.Values {
		all[k] = v
	}
	for _, name := range p.predictor.FeatureNames() {
		if _, ok := all[name]; !ok {
			all[name] = 0
		}
	}

	// Step 4: predict.
	pred := p.predictor.PredictWithCategory(all)

	result := Result{
		PM25Predicted:       pred.PM25Predicted,
		AirQualityCategory:  pred.AirQualityCategory,
		Confidence:          confidence,
		LocationID:          locationID,
		ModelUsed:           pred.ModelUsed,
		Message:             message,
		PM25LogScale:        pred.PM25LogScale,
		NFeaturesUsed:       len(all) + len(current.Labels),
		NHistoricalFeatures: len(historical),
		NCurrentFeatures:    current.Len(),
	}

	log.Printf("prediction complete: %.2f ug/m3 (%s), confidence=%s, location=%s",
		result.PM25Predicted, result.AirQualityCategory, result.Confidence, locationID)
	return result, nil
}

// AvailableLocations lists location ids with stored training history.
func (p *Pipeline) AvailableLocations() []string {
	return p.defaults.AvailableLocations()
}

// Info returns metadata about the pipeline components.
func (p *Pipeline) Info() Info {
	return Info{
		Model:               p.predictor.Info(),
		AvailableLocations:  p.defaults.AvailableLocations(),
		NTimeSeriesFeatures: len(p.defaults.TimeSeriesFeatureList()),
		PipelineVersion:     Version,
	}
}

// Registry holds the currently active pipeline and allows the artifact
// reloader to swap in a rebuilt one. Each pipeline value stays immutable;
// in-flight requests keep the pipeline they started with.
type Registry struct {
	mu      sync.RWMutex
	current *Pipeline
}

// NewRegistry creates a registry around an initial pipeline.
func NewRegistry(p *Pipeline) *Registry {
	return &Registry{current: p}
}

// Current returns the active pipeline.
func (r *Registry) Current() *Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Swap replaces the active pipeline.
func (r *Registry) Swap(p *Pipeline) {
	r.mu.Lock()
	r.current = p
	r.mu.Unlock()
}
