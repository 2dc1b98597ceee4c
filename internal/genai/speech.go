// ABOUTME: Text-to-speech through the generative service
// ABOUTME: Returns the first inline audio blob as a base64 payload
package genai

import (
	"context"
	"encoding/base64"
	"fmt"

	pb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"github.com/kisandost/kisandost-go/pkg/audio/decode"
	"google.golang.org/protobuf/proto"
)

// Audio is a speech payload
type Audio struct {
	Data     string // base64
	MIMEType string
}

// Synthesize speaks text in the client language
func (c *Client) Synthesize(ctx context.Context, text string) (Audio, error) {
	req := &pb.GenerateContentRequest{
		Model:    modelName(c.config.SpeechModel),
		Contents: userContent(textPart(fmt.Sprintf("Please read this clearly in %s: %s", c.config.Language, text))),
		GenerationConfig: &pb.GenerationConfig{
			ResponseModalities: []pb.GenerationConfig_Modality{pb.GenerationConfig_AUDIO},
			SpeechConfig: &pb.SpeechConfig{
				VoiceConfig: &pb.VoiceConfig{
					VoiceConfig: &pb.VoiceConfig_PrebuiltVoiceConfig{
						PrebuiltVoiceConfig: &pb.PrebuiltVoiceConfig{VoiceName: proto.String(c.config.Voice)},
					},
				},
			},
		},
	}

	resp, err := c.generate(ctx, *c.config.SpeechPolicy, req)
	if err != nil {
		return Audio{}, err
	}

	return extractAudio(resp)
}

func extractAudio(resp *pb.GenerateContentResponse) (Audio, error) {
	if resp == nil || len(resp.GetCandidates()) == 0 {
		return Audio{}, decode.ErrAudioUnavailable
	}

	for _, part := range resp.GetCandidates()[0].GetContent().GetParts() {
		blob := part.GetInlineData()
		if blob == nil || len(blob.GetData()) == 0 {
			continue
		}
		return Audio{
			Data:     base64.StdEncoding.EncodeToString(blob.GetData()),
			MIMEType: blob.GetMimeType(),
		}, nil
	}

	return Audio{}, decode.ErrAudioUnavailable
}
