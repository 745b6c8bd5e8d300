package store

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no predictions have been served for a location.
var ErrNotFound = errors.New("no predictions for location")

// PredictionRecord is one served prediction kept for the history endpoint.
type PredictionRecord struct {
	RequestID          string    `json:"request_id"`
	LocationID         string    `json:"location_id"`
	Timestamp          time.Time `json:"timestamp"` // always UTC
	PM25Predicted      float64   `json:"pm25_predicted"`
	AirQualityCategory string    `json:"air_quality_category"`
	Confidence         string    `json:"confidence"`
	ModelUsed          string    `json:"model_used"`
}

type predictionHistory struct {
	records []PredictionRecord
}

// MemoryStore is a concurrency-safe in-memory log of served predictions,
// keyed by location id, with count and age retention.
type MemoryStore struct {
	mu sync.RWMutex

	data map[string]*predictionHistory

	maxHistory int           // max records per location (0 = unlimited)
	maxAge     time.Duration // max record age (0 = unlimited)
}

// NewMemoryStore creates a new MemoryStore with optional limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*predictionHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Append records a served prediction and enforces retention.
func (s *MemoryStore) Append(rec PredictionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[rec.LocationID]
	if !ok {
		history = &predictionHistory{}
		s.data[rec.LocationID] = history
	}

	history.records = append(history.records, rec)

	if s.maxHistory > 0 && len(history.records) > s.maxHistory {
		over := len(history.records) - s.maxHistory
		history.records = history.records[over:]
	}

	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.records); i++ {
			if !history.records[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			history.records = history.records[i:]
		}
	}
}

// History returns all retained predictions for a location, oldest first.
func (s *MemoryStore) History(locationID string) ([]PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[locationID]
	if !ok || len(history.records) == 0 {
		return nil, ErrNotFound
	}

	out := make([]PredictionRecord, len(history.records))
	copy(out, history.records)
	return out, nil
}

// Latest returns the most recent prediction for a location.
func (s *MemoryStore) Latest(locationID string) (PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[locationID]
	if !ok || len(history.records) == 0 {
		return PredictionRecord{}, ErrNotFound
	}
	return history.records[len(history.records)-1], nil
}
