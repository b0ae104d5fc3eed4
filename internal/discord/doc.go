// Package discord reads channel history from the Discord REST API.
//
// Only the endpoints needed to resolve a channel and page through its
// messages are implemented. Requests are spaced by a token bucket limiter so
// a full history walk never bursts the API.
package discord
