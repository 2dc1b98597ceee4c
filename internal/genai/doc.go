// Package genai is the client for the generative language service.
//
// Every call goes through Retry, which classifies gRPC status codes into
// ErrServiceRateLimited and ErrServiceUnavailable (retried with jittered
// exponential backoff) or a *ClientError (returned immediately).
package genai
