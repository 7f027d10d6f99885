// Package testutil provides in-memory test doubles for the resolver and
// runner boundaries, plus small helpers shared across test suites.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/vk/componentd/internal/decl"
	"github.com/vk/componentd/internal/resolver"
	"github.com/vk/componentd/internal/runner"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// StaticResolver serves component declarations from an in-memory map and
// counts how many times each URL is resolved.
type StaticResolver struct {
	mu     sync.Mutex
	decls  map[string]*decl.ComponentDecl
	counts map[string]int
}

// NewStaticResolver builds a resolver over the given URL-to-declaration map.
// The map is used directly; tests must not mutate it afterwards.
func NewStaticResolver(decls map[string]*decl.ComponentDecl) *StaticResolver {
	return &StaticResolver{decls: decls, counts: make(map[string]int)}
}

// Add registers or replaces the declaration for a URL.
func (r *StaticResolver) Add(url string, d *decl.ComponentDecl) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decls[url] = d
}

func (r *StaticResolver) Resolve(_ context.Context, url string) (*resolver.ResolvedComponent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[url]++
	d, ok := r.decls[url]
	if !ok {
		return nil, resolver.NewError(resolver.ManifestInvalid, url, fmt.Errorf("no declaration registered"))
	}
	return &resolver.ResolvedComponent{URL: url, Decl: d}, nil
}

// ResolveCount reports how many times the URL has been resolved.
func (r *StaticResolver) ResolveCount(url string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[url]
}

// RecordingRunner records every start it receives and can be told to fail
// particular URLs.
type RecordingRunner struct {
	mu       sync.Mutex
	starts   []runner.StartInfo
	failures map[string]error
}

// NewRecordingRunner builds a runner that succeeds for every URL.
func NewRecordingRunner() *RecordingRunner {
	return &RecordingRunner{failures: make(map[string]error)}
}

// FailURL makes Start return err for the given resolved URL.
func (r *RecordingRunner) FailURL(url string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[url] = err
}

func (r *RecordingRunner) Start(_ context.Context, info runner.StartInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failures[info.ResolvedURL]; ok {
		return err
	}
	r.starts = append(r.starts, info)
	return nil
}

// Starts returns a copy of the recorded start calls in order.
func (r *RecordingRunner) Starts() []runner.StartInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]runner.StartInfo, len(r.starts))
	copy(out, r.starts)
	return out
}

// StartedURLs returns the resolved URLs of recorded starts in order.
func (r *RecordingRunner) StartedURLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	urls := make([]string, len(r.starts))
	for i, s := range r.starts {
		urls[i] = s.ResolvedURL
	}
	return urls
}

// StartCount reports how many starts were recorded.
func (r *RecordingRunner) StartCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.starts)
}
