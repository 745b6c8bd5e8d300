package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/common"
)

// Family tags the loaded model's algorithm family. It is fixed once at
// artifact-load time; Linear-family models require input scaling.
type Family string

const (
	FamilyLinear       Family = "linear"
	FamilyTreeEnsemble Family = "tree_ensemble"
	FamilyOther        Family = "other"
)

// Model is a deserialized regression model. Immutable after load and safe
// for concurrent inference.
type Model struct {
	Name   string
	Family Family

	linear   *linearModel
	ensemble *treeEnsemble
}

type linearModel struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

type decisionTree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeEnsemble struct {
	Trees       []decisionTree `json:"trees"`
	BaseScore   float64        `json:"base_score"`
	Aggregation string         `json:"aggregation"` // "sum" (boosting) or "mean" (bagging)
}

type modelDocument struct {
	ModelName string        `json:"model_name"`
	Family    string        `json:"family"`
	Linear    *linearModel  `json:"linear,omitempty"`
	Ensemble  *treeEnsemble `json:"ensemble,omitempty"`
}

// LoadModel reads a model artifact from disk.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("predictor: read model artifact: %w", err)
	}

	var doc modelDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("predictor: decode model artifact %s: %w", path, err)
	}

	m := &Model{
		Name:     doc.ModelName,
		Family:   resolveFamily(doc),
		linear:   doc.Linear,
		ensemble: doc.Ensemble,
	}

	switch m.Family {
	case FamilyLinear:
		if m.linear == nil || len(m.linear.Coefficients) == 0 {
			return nil, fmt.Errorf("predictor: model %s tagged linear but has no weights", path)
		}
	case FamilyTreeEnsemble:
		if m.ensemble == nil || len(m.ensemble.Trees) == 0 {
			return nil, fmt.Errorf("predictor: model %s tagged tree_ensemble but has no trees", path)
		}
	default:
		if m.linear == nil && m.ensemble == nil {
			return nil, fmt.Errorf("predictor: model %s carries no usable payload", path)
		}
	}

	return m, nil
}

// resolveFamily prefers the artifact's explicit tag. Untagged artifacts fall
// back to keyword detection on the model name, then to the payload shape.
func resolveFamily(doc modelDocument) Family {
	switch Family(doc.Family) {
	case FamilyLinear, FamilyTreeEnsemble, FamilyOther:
		return Family(doc.Family)
	}

	name := strings.ToLower(doc.ModelName)
	if common.HasAny(name, "linearregression", "linear regression", "ridge", "lasso", "elasticnet", "elastic net") {
		return FamilyLinear
	}
	if doc.Ensemble != nil {
		return FamilyTreeEnsemble
	}
	if doc.Linear != nil {
		return FamilyLinear
	}
	return FamilyOther
}

// NeedsScaling reports whether inputs must be scaled before inference.
func (m *Model) NeedsScaling() bool {
	return m.Family == FamilyLinear
}

// NumFeatures returns the input width the model declares, or 0 for tree
// ensembles (which only reference features by index).
func (m *Model) NumFeatures() int {
	if m.linear != nil {
		return len(m.linear.Coefficients)
	}
	return 0
}

// Predict runs single-row inference. The output is on the log1p scale the
// model was trained against.
func (m *Model) Predict(x []float64) float64 {
	if m.linear != nil {
		return m.linear.predict(x)
	}
	return m.ensemble.predict(x)
}

func (lm *linearModel) predict(x []float64) float64 {
	sum := lm.Intercept
	for i, c := range lm.Coefficients {
		if i >= len(x) {
			break
		}
		sum += c * x[i]
	}
	return sum
}

func (te *treeEnsemble) predict(x []float64) float64 {
	sum := te.BaseScore
	for _, t := range te.Trees {
		sum += t.evaluate(x)
	}
	if te.Aggregation == "mean" && len(te.Trees) > 0 {
		return sum / float64(len(te.Trees))
	}
	return sum
}

func (t *decisionTree) evaluate(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		node := t.Nodes[i]
		if node.Leaf {
			return node.Value
		}
		var feat float64
		if node.Feature >= 0 && node.Feature < len(x) {
			feat = x[node.Feature]
		}
		if feat <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
		if i < 0 || i >= len(t.Nodes) {
			return 0
		}
	}
}

// Scaler is a fitted standard scaler: (x - mean) / scale per feature.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LoadScaler reads a scaler artifact from disk.
func LoadScaler(path string) (*Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("predictor: read scaler artifact: %w", err)
	}
	var s Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("predictor: decode scaler artifact %s: %w", path, err)
	}
	if len(s.Mean) != len(s.Scale) {
		return nil, fmt.Errorf("predictor: scaler artifact %s: mean/scale length mismatch (%d vs %d)",
			path, len(s.Mean), len(s.Scale))
	}
	return &s, nil
}

// Transform scales one row. Zero scales are treated as 1 so constant
// features pass through centered.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if i >= len(s.Mean) {
			out[i] = v
			continue
		}
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out
}
