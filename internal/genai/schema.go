// ABOUTME: Response schemas and wire types for structured model output
// ABOUTME: Mirrors the JSON contracts for verdicts, mandi prices and weather
package genai

import (
	pb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
)

// Verdict is the verification service output
type Verdict struct {
	Status          string  `json:"status"` // success | failure
	ProductName     string  `json:"productName"`
	Brand           string  `json:"brand"`
	BatchNumber     string  `json:"batchNumber,omitempty"`
	ExpiryDate      string  `json:"expiryDate,omitempty"`
	Serial          string  `json:"serial,omitempty"`
	Reasoning       string  `json:"reasoning"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// Authentic reports whether the product was judged original
func (v Verdict) Authentic() bool {
	return v.Status == "success"
}

// MandiPrice is one crop quote at a market
type MandiPrice struct {
	Crop     string  `json:"crop"`
	Price    float64 `json:"price"`
	Unit     string  `json:"unit"`
	Trend    string  `json:"trend"` // up | down | stable
	Change   float64 `json:"change"`
	Emoji    string  `json:"emoji"`
	Verified bool    `json:"verified,omitempty"`
}

// ForecastDay is one day of the outlook
type ForecastDay struct {
	Day  string  `json:"day"`
	Temp float64 `json:"temp"`
	Icon string  `json:"icon"`
}

// WeatherReport is an agricultural weather summary
type WeatherReport struct {
	Location       string        `json:"location"`
	Temp           float64       `json:"temp"`
	Condition      string        `json:"condition"`
	Icon           string        `json:"icon"`
	Humidity       float64       `json:"humidity"`
	WindSpeed      float64       `json:"windSpeed"`
	UVIndex        float64       `json:"uvIndex"`
	RainfallChance float64       `json:"rainfallChance"`
	AgriAdvice     string        `json:"agriAdvice"`
	Forecast       []ForecastDay `json:"forecast"`
}

func str() *pb.Schema  { return &pb.Schema{Type: pb.Type_STRING} }
func num() *pb.Schema  { return &pb.Schema{Type: pb.Type_NUMBER} }
func flag() *pb.Schema { return &pb.Schema{Type: pb.Type_BOOLEAN} }

func enum(values ...string) *pb.Schema {
	return &pb.Schema{Type: pb.Type_STRING, Format: "enum", Enum: values}
}

func object(props map[string]*pb.Schema, required ...string) *pb.Schema {
	return &pb.Schema{Type: pb.Type_OBJECT, Properties: props, Required: required}
}

func array(items *pb.Schema) *pb.Schema {
	return &pb.Schema{Type: pb.Type_ARRAY, Items: items}
}

var verdictSchema = object(map[string]*pb.Schema{
	"status":          enum("success", "failure"),
	"productName":     str(),
	"brand":           str(),
	"batchNumber":     str(),
	"expiryDate":      str(),
	"serial":          str(),
	"reasoning":       str(),
	"confidenceScore": num(),
}, "status", "productName", "brand", "reasoning", "confidenceScore")

var pricesSchema = array(object(map[string]*pb.Schema{
	"crop":     str(),
	"price":    num(),
	"unit":     str(),
	"trend":    enum("up", "down", "stable"),
	"change":   num(),
	"emoji":    str(),
	"verified": flag(),
}, "crop", "price", "unit", "trend", "change", "emoji"))

var weatherSchema = object(map[string]*pb.Schema{
	"location":       str(),
	"temp":           num(),
	"condition":      str(),
	"icon":           str(),
	"humidity":       num(),
	"windSpeed":      num(),
	"uvIndex":        num(),
	"rainfallChance": num(),
	"agriAdvice":     str(),
	"forecast": array(object(map[string]*pb.Schema{
		"day":  str(),
		"temp": num(),
		"icon": str(),
	}, "day", "temp", "icon")),
}, "location", "temp", "condition", "icon", "humidity", "windSpeed", "uvIndex", "rainfallChance", "agriAdvice", "forecast")

func jsonConfig(schema *pb.Schema) *pb.GenerationConfig {
	return &pb.GenerationConfig{
		ResponseMimeType: "application/json",
		ResponseSchema:   schema,
	}
}
