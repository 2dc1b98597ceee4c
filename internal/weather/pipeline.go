// ABOUTME: Location resolution as a pipeline of fallible steps
// ABOUTME: The first step that yields a name wins; the default always does
package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kisandost/kisandost-go/internal/geo"
	"github.com/kisandost/kisandost-go/internal/store"
)

// DefaultLocation is used when nothing else resolves
const DefaultLocation = "Sirsa, Haryana"

// errSkip marks a step that does not apply
var errSkip = errors.New("step skipped")

// Step resolves a location name or fails
type Step struct {
	Name    string
	Resolve func(ctx context.Context) (string, error)
}

// Resolution is a resolved location and the step that produced it
type Resolution struct {
	Location string
	Source   string
}

// Run tries steps in order and returns the first success
func Run(ctx context.Context, steps ...Step) (Resolution, error) {
	var errs []error
	for _, step := range steps {
		name, err := step.Resolve(ctx)
		if err == nil && strings.TrimSpace(name) != "" {
			return Resolution{Location: strings.TrimSpace(name), Source: step.Name}, nil
		}
		if err != nil && !errors.Is(err, errSkip) {
			log.Printf("Location step %s failed: %v", step.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
		}
	}
	return Resolution{}, fmt.Errorf("no location resolved: %w", errors.Join(errs...))
}

// Locator finds this host's coordinates
type Locator interface {
	Locate(ctx context.Context) (geo.Coordinates, error)
}

// ReverseGeocoder names coordinates
type ReverseGeocoder interface {
	Reverse(ctx context.Context, c geo.Coordinates) (string, error)
}

// LocationConfig configures the standard pipeline
type LocationConfig struct {
	// Explicit is a user-supplied name and wins outright
	Explicit string

	// Coordinates skips the locator when set
	Coordinates *geo.Coordinates

	Locator  Locator
	Geocoder ReverseGeocoder
	Store    *store.Store

	// Online gates the network steps
	Online bool
}

// Steps builds explicit, detect, last detected and default steps
func Steps(cfg LocationConfig) []Step {
	return []Step{
		{Name: "explicit", Resolve: func(ctx context.Context) (string, error) {
			if cfg.Explicit == "" {
				return "", errSkip
			}
			return cfg.Explicit, nil
		}},
		{Name: "detected", Resolve: func(ctx context.Context) (string, error) {
			return detect(ctx, cfg)
		}},
		{Name: "last-detected", Resolve: func(ctx context.Context) (string, error) {
			if cfg.Store == nil {
				return "", errSkip
			}
			var last string
			ok, err := cfg.Store.Get(ctx, store.KeyLastDetectedLocation, &last)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", errSkip
			}
			return last, nil
		}},
		{Name: "default", Resolve: func(ctx context.Context) (string, error) {
			return DefaultLocation, nil
		}},
	}
}

// detect geolocates, reverse geocodes and remembers the result
func detect(ctx context.Context, cfg LocationConfig) (string, error) {
	if !cfg.Online || cfg.Geocoder == nil {
		return "", errSkip
	}

	var coords geo.Coordinates
	switch {
	case cfg.Coordinates != nil:
		coords = *cfg.Coordinates
	case cfg.Locator != nil:
		c, err := cfg.Locator.Locate(ctx)
		if err != nil {
			return "", err
		}
		coords = c
	default:
		return "", errSkip
	}

	name, err := cfg.Geocoder.Reverse(ctx, coords)
	if err != nil {
		return "", err
	}

	if cfg.Store != nil {
		if err := cfg.Store.Put(ctx, store.KeyLastDetectedLocation, name); err != nil {
			log.Printf("Failed to remember detected location: %v", err)
		}
	}
	return name, nil
}
