// Package services implements the upstream clients used to turn user input into a playable stream.
//
// # Invidious
//
// [InvidiousService] talks to an Invidious instance. When no host is configured, [InvidiousService.Load]
// picks the public instance with the most half-year active users from the instance directory.
// Video lookups are retried once on upstream failure. [InvidiousService.NegotiateAudio] chooses the
// highest bitrate audio-only format and follows the instance's latest_version redirect to a playable URL.
//
// # Spotify
//
// [SpotifyService] looks up track metadata with an app-only bearer token obtained through the OAuth2
// client credentials grant. [TokenCache] keeps the token and refreshes it when it is missing or
// within 15 minutes of expiry.
//
// # Resolution
//
// [Resolver] normalizes watch URLs, short URLs and Spotify track URLs into a video id. Spotify
// tracks are matched by searching for "<name> by <artists>" and taking the first result.
//
// # Error Handling
//
// Services wrap the sentinel errors from the shared package:
//   - [shared.ErrUpstream] : request failed, timed out, or the body carried an error field
//   - [shared.ErrNoInstanceAvailable] : the directory lists no usable instance
//   - [shared.ErrNoAudioFormat] : the video has no audio-only format
//   - [shared.ErrInvalidToken] : Spotify rejected the bearer token
//   - [shared.ErrInvalidCredentials] : Spotify rejected the client credentials
//   - [shared.ErrNoMatch] : search found nothing for a Spotify track
//   - [shared.ErrInvalidInput] : the input matched no known reference format
package services
