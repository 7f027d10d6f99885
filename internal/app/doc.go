// Package app contains the core application logic. It assembles the model,
// resolvers, and runner into a running orchestrator, decoupled from any
// specific entrypoint like a CLI.
package app
