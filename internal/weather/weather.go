// ABOUTME: Agricultural weather reports for the resolved location
// ABOUTME: Combines the location pipeline with the weather source
package weather

import (
	"context"

	"github.com/kisandost/kisandost-go/internal/genai"
)

// Source produces weather reports
type Source interface {
	Weather(ctx context.Context, location string) (genai.WeatherReport, error)
}

// Service resolves a location and fetches its report
type Service struct {
	source Source
}

// NewService creates a weather service
func NewService(source Source) *Service {
	return &Service{source: source}
}

// Fetch resolves the location from cfg and fetches its report
func (s *Service) Fetch(ctx context.Context, cfg LocationConfig) (Resolution, genai.WeatherReport, error) {
	res, err := Run(ctx, Steps(cfg)...)
	if err != nil {
		return Resolution{}, genai.WeatherReport{}, err
	}

	report, err := s.source.Weather(ctx, res.Location)
	if err != nil {
		return res, genai.WeatherReport{}, err
	}
	return res, report, nil
}
