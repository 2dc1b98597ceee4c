// ABOUTME: Structured and free-text model calls
// ABOUTME: Product verification, mandi prices, sale advice, weather and advisor chat
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	pb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
)

// Verify judges whether a product image shows an original or counterfeit item
func (c *Client) Verify(ctx context.Context, image []byte) (Verdict, error) {
	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}

	prompt := fmt.Sprintf("Act as a specialized agricultural forensic expert. Analyze this product image. "+
		"Determine if it is likely ORIGINAL or FRAUD/FAKE. Return ONLY JSON with fields: status (success|failure), "+
		"productName, brand, batchNumber, expiryDate, serial, reasoning, confidenceScore (0-100). "+
		"Localize reasoning to %s.", c.config.Language)

	req := &pb.GenerateContentRequest{
		Model: modelName(c.config.Model),
		Contents: userContent(
			&pb.Part{Data: &pb.Part_InlineData{InlineData: &pb.Blob{MimeType: mimeType, Data: image}}},
			textPart(prompt),
		),
		GenerationConfig: jsonConfig(verdictSchema),
	}

	var v Verdict
	if err := c.generateJSON(ctx, req, &v); err != nil {
		return Verdict{}, err
	}
	if v.Status != "success" && v.Status != "failure" {
		return Verdict{}, fmt.Errorf("%w: verdict status %q", ErrMalformedResponse, v.Status)
	}
	return v, nil
}

// MarketPrices fetches five relevant crop quotes for a location
func (c *Client) MarketPrices(ctx context.Context, location string) ([]MandiPrice, error) {
	prompt := fmt.Sprintf("Search/Analyze real-time or recent agricultural trading data for the location: %q. "+
		"Identify 5 most relevant crops for this specific region. For each, provide current market price "+
		"(per Quintal in INR), price trend, price change, and a representative emoji. Response language: %s.",
		location, c.config.Language)

	req := &pb.GenerateContentRequest{
		Model:            modelName(c.config.Model),
		Contents:         userContent(textPart(prompt)),
		GenerationConfig: jsonConfig(pricesSchema),
	}

	var prices []MandiPrice
	if err := c.generateJSON(ctx, req, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// SaleAdvisory gives hold-or-sell advice for a crop at its current price
func (c *Client) SaleAdvisory(ctx context.Context, crop string, price float64) (string, error) {
	prompt := fmt.Sprintf("Analyze current market trends for %s (Current Price: ₹%g). Provide a concise smart sale "+
		"advice (max 40 words) in %s. Should the farmer hold or sell? Include a target price prediction.",
		crop, price, c.config.Language)

	return c.generateText(ctx, &pb.GenerateContentRequest{
		Model:    modelName(c.config.Model),
		Contents: userContent(textPart(prompt)),
	})
}

// Weather produces an agricultural weather report for a location
func (c *Client) Weather(ctx context.Context, location string) (WeatherReport, error) {
	prompt := fmt.Sprintf("Generate a realistic agricultural weather report for the location %q. "+
		"Provide: current temperature, condition, a Material Symbol icon name, humidity %%, wind speed (km/h), "+
		"UV index, rainfall chance %%, and a concise agricultural advice. "+
		"Also provide a 5-day forecast with day names, temperatures, and icon names. Localize to %s.",
		location, c.config.Language)

	req := &pb.GenerateContentRequest{
		Model:            modelName(c.config.Model),
		Contents:         userContent(textPart(prompt)),
		GenerationConfig: jsonConfig(weatherSchema),
	}

	var report WeatherReport
	if err := c.generateJSON(ctx, req, &report); err != nil {
		return WeatherReport{}, err
	}
	return report, nil
}

// Ask answers a farmer's question as the advisor
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	system := fmt.Sprintf("You are KisanDost, a friendly and expert agricultural advisor. "+
		"Your goal is to provide deep, detailed, and actionable explanations for every question, "+
		"especially crop-related ones (sowing, pests, fertilizers, harvest). "+
		"Always explain the \"why\" behind your advice. Use bullet points for clarity. "+
		"Respond exclusively in %s.", c.config.Language)

	return c.generateText(ctx, &pb.GenerateContentRequest{
		Model:             modelName(c.config.Model),
		SystemInstruction: &pb.Content{Parts: []*pb.Part{textPart(system)}},
		Contents:          userContent(textPart(question)),
	})
}

func (c *Client) generateText(ctx context.Context, req *pb.GenerateContentRequest) (string, error) {
	resp, err := c.generate(ctx, *c.config.Policy, req)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

func (c *Client) generateJSON(ctx context.Context, req *pb.GenerateContentRequest, dst any) error {
	text, err := c.generateText(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
