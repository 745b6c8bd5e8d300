package features

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"
)

// ErrInvalidDate is returned when the date input cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")

// Raw input field names. Pollutant columns share the "L3_" prefix.
const (
	FieldDate              = "date"
	FieldTemperature       = "temperature_2m_above_ground"
	FieldRelativeHumidity  = "relative_humidity_2m_above_ground"
	FieldSpecificHumidity  = "specific_humidity_2m_above_ground"
	FieldPrecipitableWater = "precipitable_water_entire_atmosphere"
	FieldWindU             = "u_component_of_wind_10m_above_ground"
	FieldWindV             = "v_component_of_wind_10m_above_ground"
	FieldPressure          = "pressure"

	FieldNO2  = "L3_NO2_NO2_column_number_density"
	FieldCO   = "L3_CO_CO_column_number_density"
	FieldSO2  = "L3_SO2_SO2_column_number_density"
	FieldHCHO = "L3_HCHO_tropospheric_HCHO_column_number_density"
	FieldO3   = "L3_O3_O3_column_number_density"

	pollutantPrefix = "L3_"

	// Default when no pressure reading is supplied (sea-level standard, hPa).
	defaultPressure = 1013.25
)

// RawInput is the partial mapping of user-supplied scalars. Values are
// numeric except for "date", which is a YYYY-MM-DD string.
type RawInput map[string]any

// Float returns the numeric value for key, if present and numeric.
func (r RawInput) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// String returns the string value for key, if present.
func (r RawInput) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FeatureSet holds engineered features: numeric values plus the two
// categorical labels (season, wind direction category).
type FeatureSet struct {
	Values map[string]float64
	Labels map[string]string
}

// NewFeatureSet returns an empty, ready-to-fill feature set.
func NewFeatureSet() FeatureSet {
	return FeatureSet{
		Values: make(map[string]float64),
		Labels: make(map[string]string),
	}
}

// Len is the total number of features, numeric and categorical.
func (f FeatureSet) Len() int {
	return len(f.Values) + len(f.Labels)
}

func (f FeatureSet) merge(other FeatureSet) {
	for k, v := range other.Values {
		f.Values[k] = v
	}
	for k, v := range other.Labels {
		f.Labels[k] = v
	}
}

// Engineer derives model features from raw user input. Stateless; every
// method is a pure transform.
type Engineer struct{}

// NewEngineer creates a feature engineer.
func NewEngineer() *Engineer {
	return &Engineer{}
}

// TemporalFeatures derives calendar, season, and cyclical features from a
// YYYY-MM-DD date string.
func (e *Engineer) TemporalFeatures(dateStr string) (FeatureSet, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(dateStr))
	if err != nil {
		return FeatureSet{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, dateStr, err)
	}

	// Monday=0 .. Sunday=6, matching the convention the model was trained on.
	dayOfWeek := (int(date.Weekday()) + 6) % 7
	_, isoWeek := date.ISOWeek()
	month := int(date.Month())
	day := date.Day()

	fs := NewFeatureSet()
	fs.Values["year"] = float64(date.Year())
	fs.Values["month"] = float64(month)
	fs.Values["day"] = float64(day)
	fs.Values["dayofweek"] = float64(dayOfWeek)
	fs.Values["dayofyear"] = float64(date.YearDay())
	fs.Values["week"] = float64(isoWeek)
	fs.Values["quarter"] = float64((month-1)/3 + 1)
	if dayOfWeek >= 5 {
		fs.Values["is_weekend"] = 1
	} else {
		fs.Values["is_weekend"] = 0
	}

	// Season (Northern Hemisphere).
	switch {
	case month == 12 || month <= 2:
		fs.Labels["season"] = "Winter"
	case month <= 5:
		fs.Labels["season"] = "Spring"
	case month <= 8:
		fs.Labels["season"] = "Summer"
	default:
		fs.Labels["season"] = "Fall"
	}

	// Cyclical encoding.
	fs.Values["month_sin"] = math.Sin(2 * math.Pi * float64(month) / 12)
	fs.Values["month_cos"] = math.Cos(2 * math.Pi * float64(month) / 12)
	fs.Values["dayofweek_sin"] = math.Sin(2 * math.Pi * float64(dayOfWeek) / 7)
	fs.Values["dayofweek_cos"] = math.Cos(2 * math.Pi * float64(dayOfWeek) / 7)
	fs.Values["day_sin"] = math.Sin(2 * math.Pi * float64(day) / 31)
	fs.Values["day_cos"] = math.Cos(2 * math.Pi * float64(day) / 31)

	return fs, nil
}

// WindFeatures computes speed, direction, and the 8-point compass category
// from the u (east-west) and v (north-south) wind components.
func (e *Engineer) WindFeatures(u, v float64) FeatureSet {
	speed := math.Sqrt(u*u + v*v)
	rad := math.Atan2(v, u)

	deg := math.Mod(rad*180/math.Pi, 360)
	if deg < 0 {
		deg += 360
	}

	fs := NewFeatureSet()
	fs.Values["wind_speed"] = speed
	fs.Values["wind_direction"] = rad
	fs.Values["wind_direction_deg"] = deg
	fs.Labels["wind_direction_category"] = WindDirectionCategory(deg)
	fs.Values[FieldWindU] = u
	fs.Values[FieldWindV] = v
	return fs
}

// WindDirectionCategory bins a direction in [0,360) into one of the eight
// compass points. Bins are 45° wide, inclusive on the lower bound.
func WindDirectionCategory(deg float64) string {
	switch {
	case deg >= 337.5 || deg < 22.5:
		return "N"
	case deg < 67.5:
		return "NE"
	case deg < 112.5:
		return "E"
	case deg < 157.5:
		return "SE"
	case deg < 202.5:
		return "S"
	case deg < 247.5:
		return "SW"
	case deg < 292.5:
		return "W"
	default:
		return "NW"
	}
}

// PollutantFeatures computes passthroughs, aggregates, pairwise interactions,
// and the weighted AQI proxy from the named column densities. Missing
// pollutants default to 0. O3 is excluded from the load and the proxy; its
// column density sits on a very different scale than the others.
func (e *Engineer) PollutantFeatures(pollutants map[string]float64) map[string]float64 {
	no2 := pollutants[FieldNO2]
	co := pollutants[FieldCO]
	so2 := pollutants[FieldSO2]
	hcho := pollutants[FieldHCHO]
	o3 := pollutants[FieldO3]

	total := no2 + co + so2 + hcho

	return map[string]float64{
		FieldNO2:  no2,
		FieldCO:   co,
		FieldSO2:  so2,
		FieldHCHO: hcho,
		FieldO3:   o3,

		"total_pollutant_load":        total,
		"avg_pollutant_concentration": total / 4,

		"CO_NO2_interaction":  co * no2,
		"NO2_SO2_interaction": no2 * so2,

		"AQI_proxy": 0.4*no2 + 0.3*co + 0.2*so2 + 0.1*hcho,
	}
}

// WeatherRatios computes ratio and interaction features. The +1 and +0.1
// denominator offsets guard exact-zero inputs and must stay as-is for
// numerical parity with the trained model.
func (e *Engineer) WeatherRatios(temperature, humidity, pressure, windSpeed, totalPollutants float64) map[string]float64 {
	ratios := map[string]float64{
		"temp_humidity_ratio":       temperature / (humidity + 1),
		"temp_humidity_interaction": temperature * humidity,
		"heat_index":                temperature + 0.5*humidity,
		"temp_pressure_ratio":       temperature / (pressure + 1),
		"pollutant_per_windspeed":   totalPollutants / (windSpeed + 0.1),
		"humidity_high":             0,
		"humidity_low":              0,
	}
	if humidity > 70 {
		ratios["humidity_high"] = 1
	}
	if humidity < 30 {
		ratios["humidity_low"] = 1
	}
	return ratios
}

// ProcessUserInput runs every sub-transform whose raw inputs are present and
// merges the results. Feature namespaces are disjoint, so merge order only
// matters for the raw passthroughs (which are identical on both sides).
func (e *Engineer) ProcessUserInput(in RawInput) (FeatureSet, error) {
	all := NewFeatureSet()

	if dateStr, ok := in.String(FieldDate); ok {
		temporal, err := e.TemporalFeatures(dateStr)
		if err != nil {
			return FeatureSet{}, err
		}
		all.merge(temporal)
	}

	u, uOK := in.Float(FieldWindU)
	v, vOK := in.Float(FieldWindV)
	if uOK && vOK {
		all.merge(e.WindFeatures(u, v))
	}

	// Raw weather scalars pass through unchanged.
	for _, field := range []string{
		FieldTemperature,
		FieldRelativeHumidity,
		FieldSpecificHumidity,
		FieldPrecipitableWater,
	} {
		if val, ok := in.Float(field); ok {
			all.Values[field] = val
		}
	}

	pollutants := make(map[string]float64)
	for key := range in {
		if strings.HasPrefix(key, pollutantPrefix) {
			if val, ok := in.Float(key); ok {
				pollutants[key] = val
			}
		}
	}
	if len(pollutants) > 0 {
		for k, v := range e.PollutantFeatures(pollutants) {
			all.Values[k] = v
		}
	}

	temp, tempOK := all.Values[FieldTemperature]
	humidity, humOK := all.Values[FieldRelativeHumidity]
	if tempOK && humOK {
		pressure, ok := in.Float(FieldPressure)
		if !ok {
			pressure = defaultPressure
		}
		ratios := e.WeatherRatios(
			temp,
			humidity,
			pressure,
			all.Values["wind_speed"],
			all.Values["total_pollutant_load"],
		)
		for k, v := range ratios {
			all.Values[k] = v
		}
	}

	log.Printf("feature engineering complete: %d features generated", all.Len())
	return all, nil
}
