// ABOUTME: Main application orchestration
// ABOUTME: Wires storage, the generative client, playback, scans, markets and weather
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/kisandost/kisandost-go/internal/config"
	"github.com/kisandost/kisandost-go/internal/connectivity"
	"github.com/kisandost/kisandost-go/internal/genai"
	"github.com/kisandost/kisandost-go/internal/geo"
	"github.com/kisandost/kisandost-go/internal/guides"
	"github.com/kisandost/kisandost-go/internal/market"
	"github.com/kisandost/kisandost-go/internal/playback"
	"github.com/kisandost/kisandost-go/internal/scan"
	"github.com/kisandost/kisandost-go/internal/store"
	"github.com/kisandost/kisandost-go/internal/telemetry"
	"github.com/kisandost/kisandost-go/internal/weather"
	"github.com/kisandost/kisandost-go/pkg/audio/encode"
	"github.com/kisandost/kisandost-go/pkg/audio/output"
)

// ErrUnknownGuide is returned for guide ids not in the catalog
var ErrUnknownGuide = errors.New("unknown guide")

// Options overrides collaborators, mainly for tests
type Options struct {
	// Generator replaces the network client
	Generator genai.Generator

	// Device replaces the audio output (default: oto, falling back to a silent device)
	Device output.Device

	// Reporter replaces MQTT telemetry
	Reporter telemetry.Reporter

	// Monitor replaces the connectivity monitor
	Monitor *connectivity.Monitor

	// Locator and Geocoder replace the network location lookups
	Locator  weather.Locator
	Geocoder weather.ReverseGeocoder

	// Now is the clock (default: time.Now)
	Now func() time.Time
}

// App holds the wired services for one process
type App struct {
	config   config.Config
	options  Options
	store    *store.Store
	ai       *genai.Client
	monitor  *connectivity.Monitor
	reporter telemetry.Reporter
	catalog  *guides.Catalog

	scans   *scan.Service
	markets *market.Service
	weather *weather.Service

	device output.Device
}

// New opens storage and builds every service
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.Open(ctx, cfg.DBPath())
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, options: opts, store: st}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.config

	aiConfig := genai.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		SpeechModel: cfg.SpeechModel,
		Voice:       cfg.Voice,
		Language:    cfg.Profile.Language,
	}
	if a.options.Generator != nil {
		a.ai = genai.New(a.options.Generator, aiConfig)
	} else {
		ai, err := genai.NewClient(ctx, aiConfig)
		if err != nil {
			return err
		}
		a.ai = ai
	}

	a.catalog = guides.Builtin()
	if cfg.GuidesFile != "" {
		catalog, err := guides.Load(cfg.GuidesFile)
		if err != nil {
			return err
		}
		a.catalog = catalog
	}

	a.monitor = a.options.Monitor
	if a.monitor == nil {
		a.monitor = connectivity.New(connectivity.Config{
			ProbeURL: cfg.ProbeURL,
			Interval: cfg.ProbeInterval,
		})
	}
	if cfg.Offline {
		a.monitor.Force(false)
	}

	a.reporter = a.options.Reporter
	if a.reporter == nil {
		reporter, err := telemetry.New(telemetry.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			DeviceID: cfg.DeviceID,
		})
		if err != nil {
			// Telemetry is best effort
			log.Printf("Telemetry disabled: %v", err)
			reporter = telemetry.Nop{}
		}
		a.reporter = reporter
	}

	policy, err := scan.ParsePolicy(cfg.SyncPolicy)
	if err != nil {
		return err
	}
	a.scans, err = scan.NewService(scan.Config{
		Store:        a.store,
		Verifier:     a.ai,
		Connectivity: a.monitor,
		Reporter:     a.reporter,
		Policy:       policy,
		MaxAttempts:  cfg.MaxAttempts,
		Now:          a.options.Now,
	})
	if err != nil {
		return err
	}

	a.markets = market.NewService(a.store, a.ai, a.options.Now)
	a.weather = weather.NewService(a.ai)
	return nil
}

// Close releases audio, telemetry, the client and storage
func (a *App) Close() error {
	var errs []error
	if a.device != nil {
		errs = append(errs, a.device.Close())
	}
	if a.reporter != nil {
		a.reporter.Close()
	}
	if a.ai != nil {
		errs = append(errs, a.ai.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// Config returns the active configuration
func (a *App) Config() config.Config {
	return a.config
}

// Online probes connectivity once, honouring --offline
func (a *App) Online(ctx context.Context) bool {
	return a.monitor.Check(ctx)
}

// Guides recommends guides for crops, or for the profile's crops when empty
func (a *App) Guides(crops string) []guides.Guide {
	if crops == "" {
		crops = a.config.Profile.PrimaryCrops
	}
	return a.catalog.Recommend(crops)
}

// Guide looks up one guide
func (a *App) Guide(id string) (guides.Guide, error) {
	g, ok := a.catalog.Get(id)
	if !ok {
		return guides.Guide{}, fmt.Errorf("%w: %s", ErrUnknownGuide, id)
	}
	return g, nil
}

// Scan captures an image file: verified now when online, queued otherwise
func (a *App) Scan(ctx context.Context, path string) (scan.CaptureResult, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return scan.CaptureResult{}, fmt.Errorf("read image: %w", err)
	}

	a.monitor.Check(ctx)
	return a.scans.Capture(ctx, image)
}

// Sync runs one pass over the pending queue
func (a *App) Sync(ctx context.Context) (scan.SyncReport, error) {
	a.monitor.Check(ctx)
	return a.scans.Sync(ctx)
}

// WatchSync probes connectivity until ctx ends, syncing whenever the network returns
func (a *App) WatchSync(ctx context.Context) {
	events := a.monitor.Subscribe()
	go a.monitor.Run(ctx)
	a.scans.Watch(ctx, events)
}

// Pending lists queued scans
func (a *App) Pending(ctx context.Context) ([]scan.PendingScan, error) {
	return a.scans.Pending(ctx)
}

// History lists verification records
func (a *App) History(ctx context.Context) ([]scan.VerificationRecord, error) {
	return a.scans.History(ctx)
}

// Prices loads mandi prices. An empty location uses the favorite market, then the location pipeline.
func (a *App) Prices(ctx context.Context, location string) (market.Report, error) {
	online := a.monitor.Check(ctx)

	if location == "" {
		fav, err := a.markets.Favorite(ctx)
		if err != nil {
			return market.Report{}, err
		}
		location = fav
	}
	if location == "" {
		res, err := weather.Run(ctx, weather.Steps(a.locationConfig(online))...)
		if err != nil {
			return market.Report{}, err
		}
		location = res.Location
	}

	return a.markets.Load(ctx, location, online)
}

// ToggleFavorite marks or unmarks a market; it reports whether location is now the favorite
func (a *App) ToggleFavorite(ctx context.Context, location string) (bool, error) {
	return a.markets.ToggleFavorite(ctx, location)
}

// Weather resolves the location and fetches its report
func (a *App) Weather(ctx context.Context, location string) (weather.Resolution, genai.WeatherReport, error) {
	online := a.monitor.Check(ctx)
	if !online {
		return weather.Resolution{}, genai.WeatherReport{}, scan.ErrOffline
	}

	cfg := a.locationConfig(online)
	if location != "" {
		cfg.Explicit = location
	}
	return a.weather.Fetch(ctx, cfg)
}

func (a *App) locationConfig(online bool) weather.LocationConfig {
	locator := a.options.Locator
	if locator == nil {
		locator = geo.NewIPLocator("", &http.Client{Timeout: 5 * time.Second})
	}
	geocoder := a.options.Geocoder
	if geocoder == nil {
		geocoder = geo.NewGeocoder("", &http.Client{Timeout: 5 * time.Second})
	}

	return weather.LocationConfig{
		Explicit: a.config.Location,
		Locator:  locator,
		Geocoder: geocoder,
		Store:    a.store,
		Online:   online,
	}
}

// Ask puts a question to the farming advisor
func (a *App) Ask(ctx context.Context, question string) (string, error) {
	if !a.monitor.Check(ctx) {
		return "", scan.ErrOffline
	}
	return a.ai.Ask(ctx, question)
}

// Synthesizer adapts the generative client to the playback controller
func (a *App) Synthesizer() playback.Synthesizer {
	return playback.SynthesizerFunc(func(ctx context.Context, text string) (playback.Speech, error) {
		audio, err := a.ai.Synthesize(ctx, text)
		if err != nil {
			return playback.Speech{}, err
		}
		return playback.Speech{Payload: audio.Data, MIMEType: audio.MIMEType}, nil
	})
}

// SaveSpeech synthesizes text and writes it to path as a WAV file
func (a *App) SaveSpeech(ctx context.Context, text, path string) error {
	speech, err := a.Synthesizer().Synthesize(ctx, text)
	if err != nil {
		return err
	}
	buf, err := playback.DecodeSpeech(speech)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := encode.WriteWAV(f, buf); err != nil {
		f.Close()
		return err
	}
	log.Printf("Saved %.1fs of speech to %s", buf.Duration(), path)
	return f.Close()
}

// Player creates a playback controller on the shared output device
func (a *App) Player(onState func(playback.Snapshot)) (*playback.Controller, error) {
	device, err := a.outputDevice()
	if err != nil {
		return nil, err
	}

	volume := a.config.Volume
	return playback.New(playback.Config{
		Device:        device,
		Synthesizer:   a.Synthesizer(),
		Volume:        &volume,
		OnStateChange: onState,
	})
}

// Narrate speaks text and blocks until it finishes, fails or ctx ends
func (a *App) Narrate(ctx context.Context, text string) error {
	done := make(chan playback.Snapshot, 1)
	player, err := a.Player(func(s playback.Snapshot) {
		switch s.Status {
		case playback.StatusEnded, playback.StatusError:
			select {
			case done <- s:
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	defer player.Close()

	if err := player.RequestPlay(ctx, text); err != nil {
		return err
	}

	select {
	case s := <-done:
		return s.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) outputDevice() (output.Device, error) {
	if a.device != nil {
		return a.device, nil
	}
	if a.options.Device != nil {
		a.device = a.options.Device
		return a.device, nil
	}

	device, err := output.NewOto()
	if err != nil {
		log.Printf("Audio output unavailable, playing silently: %v", err)
		a.device = output.NewNull()
		return a.device, nil
	}
	a.device = device
	return a.device, nil
}
