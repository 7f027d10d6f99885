package model

import "github.com/vk/componentd/internal/runner"

// Execution is the runtime state of a started instance. Its presence on a
// realm is the definition of "started": a realm with no Execution is
// stopped, one with an Execution is running. It carries everything minted at
// start time and nothing else.
type Execution struct {
	// ResolvedURL is the URL the instance was resolved from at start.
	ResolvedURL string
	// Namespace is the incoming namespace handed to the runner.
	Namespace []runner.NamespaceEntry
	// OutgoingDir is where the instance serves its outgoing capabilities,
	// empty when the model has no outgoing-directory root configured.
	OutgoingDir string
}
