package features

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestTemporalFeatures(t *testing.T) {
	e := NewEngineer()

	// 2024-12-03 is a Tuesday.
	fs, err := e.TemporalFeatures("2024-12-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]float64{
		"year":       2024,
		"month":      12,
		"day":        3,
		"dayofweek":  1, // Monday=0 convention
		"dayofyear":  338,
		"week":       49,
		"quarter":    4,
		"is_weekend": 0,
	}
	for name, val := range want {
		if got := fs.Values[name]; got != val {
			t.Errorf("%s = %v, want %v", name, got, val)
		}
	}
	if fs.Labels["season"] != "Winter" {
		t.Errorf("season = %q, want Winter", fs.Labels["season"])
	}

	// Cyclical pairs must sit on the unit circle.
	pairs := [][2]string{
		{"month_sin", "month_cos"},
		{"dayofweek_sin", "dayofweek_cos"},
		{"day_sin", "day_cos"},
	}
	for _, pair := range pairs {
		s, c := fs.Values[pair[0]], fs.Values[pair[1]]
		if !almostEqual(s*s+c*c, 1, tolerance) {
			t.Errorf("%s^2 + %s^2 = %v, want 1", pair[0], pair[1], s*s+c*c)
		}
	}
}

func TestTemporalFeaturesSeasonsAndWeekend(t *testing.T) {
	e := NewEngineer()

	cases := []struct {
		date      string
		season    string
		dayOfWeek float64
		weekend   float64
	}{
		{"2024-01-15", "Winter", 0, 0}, // Monday
		{"2024-04-10", "Spring", 2, 0}, // Wednesday
		{"2024-07-13", "Summer", 5, 1}, // Saturday
		{"2024-10-06", "Fall", 6, 1},   // Sunday
	}

	for _, tc := range cases {
		fs, err := e.TemporalFeatures(tc.date)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.date, err)
		}
		if fs.Labels["season"] != tc.season {
			t.Errorf("%s: season = %q, want %q", tc.date, fs.Labels["season"], tc.season)
		}
		if fs.Values["dayofweek"] != tc.dayOfWeek {
			t.Errorf("%s: dayofweek = %v, want %v", tc.date, fs.Values["dayofweek"], tc.dayOfWeek)
		}
		if fs.Values["is_weekend"] != tc.weekend {
			t.Errorf("%s: is_weekend = %v, want %v", tc.date, fs.Values["is_weekend"], tc.weekend)
		}
	}
}

func TestTemporalFeaturesInvalidDate(t *testing.T) {
	e := NewEngineer()

	if _, err := e.TemporalFeatures("not-a-date"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := e.TemporalFeatures("2024-13-40"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for impossible date, got %v", err)
	}
}

func TestWindFeatures(t *testing.T) {
	e := NewEngineer()

	fs := e.WindFeatures(3, 4)

	if got := fs.Values["wind_speed"]; !almostEqual(got, 5, tolerance) {
		t.Errorf("wind_speed = %v, want 5", got)
	}
	if got := fs.Values["wind_direction_deg"]; !almostEqual(got, 53.13010235415598, 1e-6) {
		t.Errorf("wind_direction_deg = %v, want ~53.13", got)
	}
	if got := fs.Labels["wind_direction_category"]; got != "NE" {
		t.Errorf("wind_direction_category = %q, want NE", got)
	}
	if fs.Values[FieldWindU] != 3 || fs.Values[FieldWindV] != 4 {
		t.Errorf("raw components not passed through: u=%v v=%v", fs.Values[FieldWindU], fs.Values[FieldWindV])
	}

	// Negative components normalize into [0,360).
	fs = e.WindFeatures(-1, -1)
	deg := fs.Values["wind_direction_deg"]
	if deg < 0 || deg >= 360 {
		t.Errorf("wind_direction_deg = %v, want value in [0,360)", deg)
	}
	if !almostEqual(deg, 225, 1e-9) {
		t.Errorf("wind_direction_deg = %v, want 225", deg)
	}
}

func TestWindDirectionCategoryBoundaries(t *testing.T) {
	cases := []struct {
		deg  float64
		want string
	}{
		{0, "N"},
		{22.4, "N"},
		{22.5, "NE"},
		{67.5, "E"},
		{112.5, "SE"},
		{157.5, "S"},
		{202.5, "SW"},
		{247.5, "W"},
		{292.5, "NW"},
		{337.4, "NW"},
		{337.5, "N"},
		{359.9, "N"},
	}

	for _, tc := range cases {
		if got := WindDirectionCategory(tc.deg); got != tc.want {
			t.Errorf("WindDirectionCategory(%v) = %q, want %q", tc.deg, got, tc.want)
		}
	}
}

func TestPollutantFeatures(t *testing.T) {
	e := NewEngineer()

	feats := e.PollutantFeatures(map[string]float64{
		FieldNO2:  50,
		FieldCO:   800,
		FieldSO2:  20,
		FieldHCHO: 10,
		FieldO3:   300,
	})

	// O3 is excluded from the load and the proxy.
	if got := feats["total_pollutant_load"]; got != 880 {
		t.Errorf("total_pollutant_load = %v, want 880", got)
	}
	if got := feats["avg_pollutant_concentration"]; got != 220 {
		t.Errorf("avg_pollutant_concentration = %v, want 220", got)
	}
	if got := feats["CO_NO2_interaction"]; got != 40000 {
		t.Errorf("CO_NO2_interaction = %v, want 40000", got)
	}
	if got := feats["NO2_SO2_interaction"]; got != 1000 {
		t.Errorf("NO2_SO2_interaction = %v, want 1000", got)
	}
	wantProxy := 0.4*50 + 0.3*800 + 0.2*20 + 0.1*10
	if got := feats["AQI_proxy"]; !almostEqual(got, wantProxy, tolerance) {
		t.Errorf("AQI_proxy = %v, want %v", got, wantProxy)
	}
	if got := feats[FieldO3]; got != 300 {
		t.Errorf("O3 passthrough = %v, want 300", got)
	}
}

func TestPollutantFeaturesMissingDefaultToZero(t *testing.T) {
	e := NewEngineer()

	feats := e.PollutantFeatures(map[string]float64{FieldNO2: 10})

	if got := feats["total_pollutant_load"]; got != 10 {
		t.Errorf("total_pollutant_load = %v, want 10", got)
	}
	if got := feats[FieldCO]; got != 0 {
		t.Errorf("missing CO = %v, want 0", got)
	}
}

func TestWeatherRatios(t *testing.T) {
	e := NewEngineer()

	ratios := e.WeatherRatios(25, 60, 1013.25, 5, 880)

	checks := map[string]float64{
		"temp_humidity_ratio":       25.0 / 61.0,
		"temp_humidity_interaction": 1500,
		"heat_index":                55,
		"temp_pressure_ratio":       25.0 / 1014.25,
		"pollutant_per_windspeed":   880.0 / 5.1,
		"humidity_high":             0,
		"humidity_low":              0,
	}
	for name, want := range checks {
		if got := ratios[name]; !almostEqual(got, want, tolerance) {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestWeatherRatiosHumidityFlags(t *testing.T) {
	e := NewEngineer()

	high := e.WeatherRatios(20, 85, 1000, 1, 0)
	if high["humidity_high"] != 1 || high["humidity_low"] != 0 {
		t.Errorf("humidity flags for 85%% = (%v, %v), want (1, 0)",
			high["humidity_high"], high["humidity_low"])
	}

	low := e.WeatherRatios(20, 20, 1000, 1, 0)
	if low["humidity_high"] != 0 || low["humidity_low"] != 1 {
		t.Errorf("humidity flags for 20%% = (%v, %v), want (0, 1)",
			low["humidity_high"], low["humidity_low"])
	}

	// Zero denominators are guarded by the fixed offsets.
	zero := e.WeatherRatios(10, 0, 0, 0, 100)
	if math.IsInf(zero["temp_humidity_ratio"], 0) || math.IsNaN(zero["temp_humidity_ratio"]) {
		t.Errorf("temp_humidity_ratio not guarded: %v", zero["temp_humidity_ratio"])
	}
	if !almostEqual(zero["pollutant_per_windspeed"], 1000, tolerance) {
		t.Errorf("pollutant_per_windspeed = %v, want 1000", zero["pollutant_per_windspeed"])
	}
}

func TestProcessUserInputFull(t *testing.T) {
	e := NewEngineer()

	in := RawInput{
		"date":                "2024-12-03",
		FieldTemperature:      25.0,
		FieldRelativeHumidity: 60.0,
		FieldWindU:            3.0,
		FieldWindV:            4.0,
		FieldNO2:              50.0,
		FieldCO:               800.0,
		FieldSO2:              20.0,
		FieldHCHO:             10.0,
	}

	fs, err := e.ProcessUserInput(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := fs.Values["wind_speed"]; !almostEqual(got, 5, tolerance) {
		t.Errorf("wind_speed = %v, want 5", got)
	}
	if got := fs.Labels["wind_direction_category"]; got != "NE" {
		t.Errorf("wind_direction_category = %q, want NE", got)
	}
	if got := fs.Values["total_pollutant_load"]; got != 880 {
		t.Errorf("total_pollutant_load = %v, want 880", got)
	}

	// Ratios run with the just-computed wind speed and pollutant load, and
	// the sea-level default pressure.
	if got := fs.Values["pollutant_per_windspeed"]; !almostEqual(got, 880.0/5.1, tolerance) {
		t.Errorf("pollutant_per_windspeed = %v, want %v", got, 880.0/5.1)
	}
	if got := fs.Values["temp_pressure_ratio"]; !almostEqual(got, 25.0/(defaultPressure+1), tolerance) {
		t.Errorf("temp_pressure_ratio = %v, want default-pressure ratio", got)
	}

	// Raw weather scalars pass through unchanged.
	if got := fs.Values[FieldTemperature]; got != 25 {
		t.Errorf("temperature passthrough = %v, want 25", got)
	}
}

func TestProcessUserInputPartial(t *testing.T) {
	e := NewEngineer()

	// Wind only: no temporal, pollutant, or ratio features.
	fs, err := e.ProcessUserInput(RawInput{FieldWindU: 1.0, FieldWindV: 0.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fs.Values["month_sin"]; ok {
		t.Error("temporal features derived without a date input")
	}
	if _, ok := fs.Values["temp_humidity_ratio"]; ok {
		t.Error("ratio features derived without temperature and humidity")
	}
	if fs.Values["wind_speed"] != 1 {
		t.Errorf("wind_speed = %v, want 1", fs.Values["wind_speed"])
	}

	// One wind component alone is not enough.
	fs, err = e.ProcessUserInput(RawInput{FieldWindU: 1.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fs.Values["wind_speed"]; ok {
		t.Error("wind features derived from a single component")
	}

	// Empty input yields an empty feature set.
	fs, err = e.ProcessUserInput(RawInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Len() != 0 {
		t.Errorf("empty input produced %d features", fs.Len())
	}
}

func TestProcessUserInputBadDate(t *testing.T) {
	e := NewEngineer()

	_, err := e.ProcessUserInput(RawInput{"date": "12/03/2024"})
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
