// # Go Client Package for the Gemini Live Voice API
//
// This repository provides a Go package for building applications that hold real-time, two-way voice conversations with an AI assistant over the Gemini Live API. It is designed to be imported into your own Go projects, providing the core functionality to handle microphone input, low-latency audio streaming, gapless playback with barge-in, and session management.
package live
