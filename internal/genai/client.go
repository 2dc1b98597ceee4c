// ABOUTME: Gemini client for speech, verification, prices, weather and chat
// ABOUTME: Wraps the generative language gRPC client behind a fakeable interface
package genai

import (
	"context"
	"fmt"
	"log"
	"strings"

	language "cloud.google.com/go/ai/generativelanguage/apiv1beta"
	pb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// Generator is the single RPC the client needs
type Generator interface {
	GenerateContent(ctx context.Context, req *pb.GenerateContentRequest, opts ...gax.CallOption) (*pb.GenerateContentResponse, error)
}

// Config holds client configuration
type Config struct {
	// APIKey authenticates requests; empty falls back to application default credentials
	APIKey string

	// Model is used for text and JSON calls (default: gemini-2.5-flash)
	Model string

	// SpeechModel is used for text-to-speech (default: gemini-2.5-flash-preview-tts)
	SpeechModel string

	// Voice is the prebuilt voice name (default: Kore)
	Voice string

	// Language localizes every answer (default: English)
	Language string

	// Policy applies to text and JSON calls (default: DefaultPolicy)
	Policy *RetryPolicy

	// SpeechPolicy applies to speech calls (default: SpeechPolicy)
	SpeechPolicy *RetryPolicy
}

// Client talks to the generative language service
type Client struct {
	config Config
	gen    Generator
	closer func() error
}

// NewClient dials the generative language service
func NewClient(ctx context.Context, config Config) (*Client, error) {
	var opts []option.ClientOption
	if config.APIKey != "" {
		log.Println("Using provided API Key.")
		opts = append(opts, option.WithAPIKey(config.APIKey))
	} else {
		log.Println("API Key not provided, attempting Application Default Credentials (ADC).")
	}

	gc, err := language.NewGenerativeClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create generative client: %w", err)
	}

	c := New(gc, config)
	c.closer = gc.Close
	return c, nil
}

// New wraps an existing generator
func New(gen Generator, config Config) *Client {
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.SpeechModel == "" {
		config.SpeechModel = "gemini-2.5-flash-preview-tts"
	}
	if config.Voice == "" {
		config.Voice = "Kore"
	}
	if config.Language == "" {
		config.Language = "English"
	}
	if config.Policy == nil {
		p := DefaultPolicy
		config.Policy = &p
	}
	if config.SpeechPolicy == nil {
		p := SpeechPolicy
		config.SpeechPolicy = &p
	}

	return &Client{config: config, gen: gen}
}

// WithLanguage returns a client answering in lang
func (c *Client) WithLanguage(lang string) *Client {
	clone := *c
	clone.config.Language = lang
	return &clone
}

// Language returns the answer language
func (c *Client) Language() string {
	return c.config.Language
}

// Close releases the underlying connection
func (c *Client) Close() error {
	if c.closer != nil {
		log.Println("Closing GenerativeClient connection.")
		return c.closer()
	}
	return nil
}

// generate runs one request under the given retry policy
func (c *Client) generate(ctx context.Context, policy RetryPolicy, req *pb.GenerateContentRequest) (*pb.GenerateContentResponse, error) {
	var resp *pb.GenerateContentResponse
	err := Retry(ctx, policy, func(ctx context.Context) error {
		var err error
		resp, err = c.gen.GenerateContent(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func modelName(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func userContent(parts ...*pb.Part) []*pb.Content {
	return []*pb.Content{{Role: "user", Parts: parts}}
}

func textPart(text string) *pb.Part {
	return &pb.Part{Data: &pb.Part_Text{Text: text}}
}

// responseText joins the text parts of the first candidate
func responseText(resp *pb.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.GetCandidates()) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.GetCandidates()[0].GetContent().GetParts() {
		b.WriteString(part.GetText())
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
