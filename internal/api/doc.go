// Package api provides the JSON REST transport shared by the exchange clients.
//
// Each Client belongs to one venue and carries:
//   - a minimum spacing between request starts (the venue rate limit)
//   - exponential backoff retries on 429, 500, 502, 503, 504 and network errors
//   - typed errors: APIError for HTTP failures, EnvelopeError for failure codes
//     reported inside a 200 body
package api
