package features

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
)

// LocationRecord is the stored historical feature record for one location.
type LocationRecord struct {
	Features map[string]float64 `json:"features"`
	NSamples int                `json:"n_samples"`
	LastSeen string             `json:"last_seen"`
}

// LocationInfo is metadata about a known location.
type LocationInfo struct {
	ID        string `json:"id"`
	NSamples  int    `json:"n_samples"`
	LastSeen  string `json:"last_seen"`
	NFeatures int    `json:"n_features"`
}

type lookupDocument struct {
	Locations      map[string]LocationRecord `json:"locations"`
	GlobalFallback map[string]float64        `json:"global_fallback"`
	Metadata       struct {
		FeatureList []string `json:"feature_list"`
		NLocations  int      `json:"n_locations"`
	} `json:"metadata"`
}

type mediansDocument struct {
	AllFeatures map[string]float64 `json:"all_features"`
	Metadata    struct {
		NFeaturesTotal int `json:"n_features_total"`
	} `json:"metadata"`
}

// Defaults answers point queries over the per-location historical feature
// lookup and the global feature-medians table. Read-only after load; safe
// for concurrent use.
type Defaults struct {
	lookup  lookupDocument
	medians mediansDocument
}

// LoadDefaults reads both lookup documents from disk. Missing or malformed
// files are fatal; per-request fallbacks are handled by the accessors.
func LoadDefaults(lookupPath, mediansPath string) (*Defaults, error) {
	d := &Defaults{}

	if err := readJSON(lookupPath, &d.lookup); err != nil {
		return nil, fmt.Errorf("features: load location lookup: %w", err)
	}
	if err := readJSON(mediansPath, &d.medians); err != nil {
		return nil, fmt.Errorf("features: load feature medians: %w", err)
	}

	log.Printf("feature defaults loaded: %d location(s), %d median feature(s)",
		len(d.lookup.Locations), len(d.medians.AllFeatures))
	return d, nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// LocationFeatures returns the historical features for a location, falling
// back to the global record for unknown ids. Absence is expected steady-state
// behavior, never an error.
func (d *Defaults) LocationFeatures(locationID string) map[string]float64 {
	if rec, ok := d.lookup.Locations[locationID]; ok {
		return rec.Features
	}
	log.Printf("location %q not found, using global fallback", locationID)
	return d.GlobalFallback()
}

// GlobalFallback returns the global feature record, or the all-feature
// medians table when the global record is empty.
func (d *Defaults) GlobalFallback() map[string]float64 {
	if len(d.lookup.GlobalFallback) > 0 {
		return d.lookup.GlobalFallback
	}
	log.Printf("global fallback empty, using feature medians")
	return d.medians.AllFeatures
}

// HasLocation reports whether the location has its own stored record.
func (d *Defaults) HasLocation(locationID string) bool {
	_, ok := d.lookup.Locations[locationID]
	return ok
}

// AvailableLocations lists known location ids in sorted order.
func (d *Defaults) AvailableLocations() []string {
	ids := make([]string, 0, len(d.lookup.Locations))
	for id := range d.lookup.Locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LocationInfo returns metadata for a known location.
func (d *Defaults) LocationInfo(locationID string) (LocationInfo, bool) {
	rec, ok := d.lookup.Locations[locationID]
	if !ok {
		return LocationInfo{}, false
	}
	return LocationInfo{
		ID:        locationID,
		NSamples:  rec.NSamples,
		LastSeen:  rec.LastSeen,
		NFeatures: len(rec.Features),
	}, true
}

// TimeSeriesFeatureList returns the fixed vocabulary of historical feature
// names declared in the lookup metadata.
func (d *Defaults) TimeSeriesFeatureList() []string {
	return d.lookup.Metadata.FeatureList
}
