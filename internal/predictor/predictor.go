package predictor

import (
	"bufio"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/common"
)

// Air quality categories (EPA-style PM2.5 bands).
const (
	CategoryGood          = "Good"
	CategoryModerate      = "Moderate"
	CategorySensitive     = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy     = "Unhealthy"
	CategoryVeryUnhealthy = "Very Unhealthy"
	CategoryHazardous     = "Hazardous"
)

// Options configures artifact loading. ModelPath overrides discovery in
// ModelsDir when set.
type Options struct {
	ModelPath        string
	ModelsDir        string
	ScalerPath       string
	FeatureNamesPath string
}

// Predictor owns the loaded model, the optional fitted scaler, and the
// canonical ordered feature-name list. Immutable after construction and safe
// to share across concurrent requests.
type Predictor struct {
	model        *Model
	scaler       *Scaler
	featureNames []string
	modelPath    string
	modelName    string
}

// Result is one prediction with its air quality category.
type Result struct {
	PM25Predicted      float64 `json:"pm25_predicted"`
	PM25LogScale       float64 `json:"pm25_log_scale"`
	AirQualityCategory string  `json:"air_quality_category"`
	ModelUsed          string  `json:"model_used"`
}

// Info describes the loaded artifacts.
type Info struct {
	ModelName    string `json:"model_name"`
	ModelFamily  Family `json:"model_family"`
	NFeatures    int    `json:"n_features"`
	NeedsScaling bool   `json:"needs_scaling"`
	ModelPath    string `json:"model_path"`
}

// New loads all artifacts. Any missing or inconsistent artifact is fatal.
func New(opts Options) (*Predictor, error) {
	p := &Predictor{modelPath: opts.ModelPath}

	if p.modelPath == "" {
		path, name, err := findModelFile(opts.ModelsDir)
		if err != nil {
			return nil, err
		}
		p.modelPath = path
		p.modelName = name
	}

	model, err := LoadModel(p.modelPath)
	if err != nil {
		return nil, err
	}
	p.model = model
	if model.Name != "" {
		p.modelName = model.Name
	}
	if p.modelName == "" {
		p.modelName = displayName(p.modelPath)
	}
	log.Printf("model loaded: %s (family=%s, needs_scaling=%t)", p.modelName, model.Family, model.NeedsScaling())

	if model.NeedsScaling() {
		scaler, err := LoadScaler(opts.ScalerPath)
		if err != nil {
			return nil, err
		}
		p.scaler = scaler
	}

	names, err := loadFeatureNames(opts.FeatureNamesPath)
	if err != nil {
		return nil, err
	}
	p.featureNames = names
	log.Printf("loaded %d feature names", len(names))

	if n := model.NumFeatures(); n > 0 && n != len(names) {
		return nil, fmt.Errorf("predictor: model expects %d features but %d names declared", n, len(names))
	}
	if p.scaler != nil && len(p.scaler.Mean) != len(names) {
		return nil, fmt.Errorf("predictor: scaler fitted on %d features but %d names declared",
			len(p.scaler.Mean), len(names))
	}

	return p, nil
}

// findModelFile discovers the current best model in dir. Multiple candidates
// are ordered lexicographically and the first wins; zero candidates is fatal.
func findModelFile(dir string) (string, string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "best_model_*.json"))
	if err != nil {
		return "", "", fmt.Errorf("predictor: scan models dir: %w", err)
	}
	if len(matches) == 0 {
		return "", "", fmt.Errorf("predictor: no model artifacts found in %s", dir)
	}
	sort.Strings(matches)

	path := matches[0]
	log.Printf("auto-detected model artifact: %s", path)
	return path, displayName(path), nil
}

// displayName derives a human-readable model name from the artifact filename.
func displayName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.TrimPrefix(name, "best_model_")
	return strings.ReplaceAll(name, "_", " ")
}

func loadFeatureNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("predictor: read feature names: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			names = append(names, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("predictor: read feature names: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("predictor: feature names file %s is empty", path)
	}
	return names, nil
}

// FeatureNames returns the canonical ordered feature-name list.
func (p *Predictor) FeatureNames() []string {
	return p.featureNames
}

// PrepareFeatures assembles the ordered vector the model expects. Canonical
// names absent from the input are zero-filled with a warning; the result is
// always a best-effort vector of canonical length.
func (p *Predictor) PrepareFeatures(feats map[string]float64) []float64 {
	vector := make([]float64, len(p.featureNames))
	missing := 0
	for i, name := range p.featureNames {
		v, ok := feats[name]
		if !ok {
			missing++
			continue
		}
		vector[i] = v
	}
	if missing > 0 {
		log.Printf("WARN: %d of %d model features missing, zero-filled", missing, len(p.featureNames))
	}
	return vector
}

// Predict runs inference and returns the log1p-scale output alongside the
// physical PM2.5 value. The model predicts log1p(PM2.5), so expm1 is the
// mandatory inverse.
func (p *Predictor) Predict(feats map[string]float64) (logValue, originalValue float64) {
	vector := p.PrepareFeatures(feats)
	if p.model.NeedsScaling() {
		vector = p.scaler.Transform(vector)
	}

	logValue = p.model.Predict(vector)
	originalValue = math.Expm1(logValue)

	log.Printf("prediction: log=%.4f, original=%.2f ug/m3", logValue, originalValue)
	return logValue, originalValue
}

// AirQualityCategory maps a physical PM2.5 concentration onto the six
// EPA-style bands.
func (p *Predictor) AirQualityCategory(pm25 float64) string {
	switch {
	case pm25 <= 12:
		return CategoryGood
	case pm25 <= 35:
		return CategoryModerate
	case pm25 <= 55:
		return CategorySensitive
	case pm25 <= 150:
		return CategoryUnhealthy
	case pm25 <= 250:
		return CategoryVeryUnhealthy
	default:
		return CategoryHazardous
	}
}

// PredictWithCategory composes Predict and AirQualityCategory into a rounded
// result record.
func (p *Predictor) PredictWithCategory(feats map[string]float64) Result {
	logValue, original := p.Predict(feats)
	return Result{
		PM25Predicted:      common.RoundTo(original, 2),
		PM25LogScale:       common.RoundTo(logValue, 4),
		AirQualityCategory: p.AirQualityCategory(original),
		ModelUsed:          p.modelName,
	}
}

// Info returns metadata about the loaded artifacts.
func (p *Predictor) Info() Info {
	return Info{
		ModelName:    p.modelName,
		ModelFamily:  p.model.Family,
		NFeatures:    len(p.featureNames),
		NeedsScaling: p.model.NeedsScaling(),
		ModelPath:    p.modelPath,
	}
}
