package models

import "time"

// Reading is one timestamped, city-scoped data row in one of the four domains.
type Reading interface {
	ReadingCity() string
	ReadingTime() time.Time
}

// WeatherReading is one weather observation for a city. Rows are immutable
// once written; a new observation is a new row, never an update.
type WeatherReading struct {
	ID          string    `json:"id,omitempty"`
	City        string    `json:"city"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"windspeed"`
	AirQuality  float64   `json:"air_quality"`
	UVIndex     float64   `json:"uv_index"`
	Visibility  *float64  `json:"visibility,omitempty"` // km; nil when the provider omits it
	Rainfall    float64   `json:"rainfall"`
	Timestamp   time.Time `json:"timestamp"`
}

func (r WeatherReading) ReadingCity() string { return r.City }

func (r WeatherReading) ReadingTime() time.Time { return r.Timestamp }

// VisibilityKm returns the visibility in km. A missing value behaves as 10 km,
// which classifies as smooth traffic downstream.
func (r WeatherReading) VisibilityKm() float64 {
	if r.Visibility == nil {
		return 10
	}
	return *r.Visibility
}

// Congestion is the derived traffic congestion bucket.
type Congestion string

const (
	CongestionSmooth   Congestion = "Smooth"
	CongestionModerate Congestion = "Moderate"
	CongestionHeavy    Congestion = "Heavy"
)

// TrafficReading is one synthetic traffic row, derived deterministically (up
// to bounded randomness) from the most recent WeatherReading for the city.
type TrafficReading struct {
	ID              string     `json:"id,omitempty"`
	City            string     `json:"city"`
	CongestionLevel Congestion `json:"congestion_level"`
	AvgSpeed        float64    `json:"avg_speed"`
	AlertStatus     string     `json:"alert_status"`
	RouteName       string     `json:"route_name,omitempty"`
	DelayMinutes    int        `json:"delay_minutes"`
	Timestamp       time.Time  `json:"timestamp"`
}

func (r TrafficReading) ReadingCity() string { return r.City }

func (r TrafficReading) ReadingTime() time.Time { return r.Timestamp }

// ResourceReading is one utility-usage row for a city.
type ResourceReading struct {
	ID               string    `json:"id,omitempty"`
	City             string    `json:"city"`
	ElectricityUsage float64   `json:"electricity_usage"` // MW
	WaterUsage       float64   `json:"water_usage"`       // million gallons
	Timestamp        time.Time `json:"timestamp"`
}

func (r ResourceReading) ReadingCity() string { return r.City }

func (r ResourceReading) ReadingTime() time.Time { return r.Timestamp }

// TransportMode is the public transport mode of a TransportReading.
type TransportMode string

const (
	ModeBus   TransportMode = "bus"
	ModeTrain TransportMode = "train"
)

// Crowding is the predicted crowding level of a line.
type Crowding string

const (
	CrowdingLow      Crowding = "low"
	CrowdingModerate Crowding = "moderate"
	CrowdingHigh     Crowding = "high"
)

// TransportReading is one public-transport status row for a line in a city.
type TransportReading struct {
	ID                string        `json:"id,omitempty"`
	City              string        `json:"city"`
	Mode              TransportMode `json:"transport_type"`
	LineNumber        string        `json:"line_number"`
	RouteName         string        `json:"route_name"`
	PredictedCrowding Crowding      `json:"predicted_crowding"`
	DelayMinutes      int           `json:"delay_minutes"`
	Timestamp         time.Time     `json:"timestamp"`
}

func (r TransportReading) ReadingCity() string { return r.City }

func (r TransportReading) ReadingTime() time.Time { return r.Timestamp }
