// ABOUTME: Error taxonomy for generative service calls
// ABOUTME: Classifies gRPC status codes into transient and permanent errors
package genai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kisandost/kisandost-go/pkg/audio/decode"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrServiceRateLimited is a transient quota error
	ErrServiceRateLimited = errors.New("service rate limited")

	// ErrServiceUnavailable is a transient server-side error
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrEmptyResponse means the model returned no usable candidate
	ErrEmptyResponse = errors.New("empty model response")

	// ErrMalformedResponse means the model output did not match the schema
	ErrMalformedResponse = errors.New("malformed model response")
)

// ClientError is a permanent error that must not be retried
type ClientError struct {
	Code    codes.Code
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error (%s): %s", e.Code, e.Message)
}

// NotFound reports whether the configured model or project does not exist
func (e *ClientError) NotFound() bool {
	return e.Code == codes.NotFound
}

// Classify maps a raw service error onto the taxonomy
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrServiceRateLimited) || errors.Is(err, ErrServiceUnavailable) {
		return err
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return err
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrServiceRateLimited, st.Message())
	case codes.Unavailable, codes.Internal, codes.DeadlineExceeded, codes.Aborted:
		return fmt.Errorf("%w: %s", ErrServiceUnavailable, st.Message())
	case codes.NotFound, codes.PermissionDenied, codes.Unauthenticated, codes.InvalidArgument, codes.FailedPrecondition:
		return &ClientError{Code: st.Code(), Message: st.Message()}
	}
	return err
}

// IsTransient reports whether a classified error is worth retrying
func IsTransient(err error) bool {
	return errors.Is(err, ErrServiceRateLimited) || errors.Is(err, ErrServiceUnavailable)
}

// UserMessage returns the text shown to the farmer for an interactive failure
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ce *ClientError
	switch {
	case errors.Is(err, ErrServiceRateLimited):
		return "The AI is currently busy. Please wait 10 seconds and try again."
	case errors.Is(err, ErrServiceUnavailable):
		return "The AI server is experiencing a temporary hiccup. Please try again."
	case errors.As(err, &ce) && ce.NotFound():
		return "The configured project was not found. Please check your API key."
	case errors.As(err, &ce) && (ce.Code == codes.Unauthenticated || ce.Code == codes.PermissionDenied):
		return "The API key was rejected. Please check GEMINI_API_KEY."
	case errors.Is(err, decode.ErrAudioUnavailable):
		return "Audio is not available for this text right now."
	case errors.Is(err, decode.ErrDecodeFailure):
		return "The audio could not be played."
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrMalformedResponse):
		return "The AI returned an unexpected answer. Please try again."
	}

	msg := err.Error()
	if i := strings.Index(msg, "\n"); i >= 0 {
		msg = msg[:i]
	}
	if msg == "" {
		return "An unexpected error occurred."
	}
	return msg
}
