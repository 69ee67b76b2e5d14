// Package safety provides text-safety detection for language model inputs.
// The primary type in this package is the Detector, which checks if a given
// text contains disallowed content. It is initialized with parameters defined
// in the Config struct and a lexicon of banned terms, loaded from a file or a
// reader at construction; a missing or unreadable lexicon source is the only
// fatal error the package produces.
//
// The Detector is designed to be thread-safe and supports concurrent usage.
//
// Detection runs in two layers:
//
//   - Local: every lexicon term is matched as a literal, case-insensitive
//     substring. Matches are scored into a risk level (safe, low, medium, high)
//     with a confidence derived from the match count and character density.
//
//   - Remote: an external moderation backend, either the censor API checker
//     (bearer token exchange + moderation endpoint, see CensorConfig) or an
//     OpenAI-backed checker (see OpenAIConfig). The remote layer is strictly
//     supplementary, any authentication, transport or parse failure degrades it
//     to a neutral safe verdict and never fails the detection call.
//
// When both layers run, their verdicts are fused: the result is unsafe if
// either layer flags it, and the confidence is a weighted combination of both
// (Config.LocalWeight and Config.RemoteWeight).
//
// The lexicon can be mutated at runtime with Detector.AddWord and
// Detector.RemoveWord, and replaced wholesale with Detector.LoadWords. All
// mutations are in-memory only and lost when the Detector is discarded.
package safety
