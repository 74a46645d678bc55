// Package filter implements the filter-pipeline abstraction a storage read
// or write path pushes transforms onto: limit readers, hashing, byte
// counting, compression, and encryption, chained left to right into a
// single Reader or Writer.
package filter

import (
	"fmt"
	"io"
)

// Reader is a filter that consumes bytes from an upstream source. It
// composes with io.Reader so a Group can be used anywhere a plain reader
// is expected.
type Reader interface {
	io.Reader

	// Result returns the filter's terminal output, if any (a hash sum, a
	// byte count). Filters with no result return nil.
	Result() any
}

// Writer is a filter that pushes bytes to a downstream sink. Close flushes
// any buffered state (a compressor's trailer, a cipher's final block) and
// must be called exactly once.
type Writer interface {
	io.WriteCloser

	Result() any
}

// Group chains readers left to right: Read on the group reads from the
// last stage, which pulls from the one before it, and so on back to the
// original source. NewReaderGroup wires that chain; each ctor in the chain
// receives the previous stage's Reader and returns the next.
type Group struct {
	stages []Reader
	head   io.Reader
}

// NewReaderGroup builds a filter chain over src. Each ctor wraps the
// output of the previous stage (or src, for the first ctor).
func NewReaderGroup(src io.Reader, ctors ...func(io.Reader) (Reader, error)) (*Group, error) {
	g := &Group{head: src}
	var cur io.Reader = src
	for _, ctor := range ctors {
		r, err := ctor(cur)
		if err != nil {
			return nil, fmt.Errorf("filter: group: %w", err)
		}
		g.stages = append(g.stages, r)
		cur = r
	}
	g.head = cur
	return g, nil
}

// Read reads from the last stage in the chain (or directly from src if the
// group has no stages).
func (g *Group) Read(p []byte) (int, error) {
	return g.head.Read(p)
}

// Results returns each stage's terminal Result(), in pipeline order.
func (g *Group) Results() []any {
	out := make([]any, len(g.stages))
	for i, s := range g.stages {
		out[i] = s.Result()
	}
	return out
}

// WriterGroup chains writers left to right: a Write on the group writes to
// the first stage, which pushes to the next, ending at dst.
type WriterGroup struct {
	stages []Writer
	head   io.Writer
}

// NewWriterGroup builds a filter chain ending at dst. ctors are applied in
// reverse so that the first ctor in the slice is the first stage data
// passes through: ctors[0] wraps a writer that eventually reaches dst
// through ctors[1:].
func NewWriterGroup(dst io.Writer, ctors ...func(io.Writer) (Writer, error)) (*WriterGroup, error) {
	g := &WriterGroup{}
	cur := dst
	stages := make([]Writer, len(ctors))
	for i := len(ctors) - 1; i >= 0; i-- {
		w, err := ctors[i](cur)
		if err != nil {
			return nil, fmt.Errorf("filter: group: %w", err)
		}
		stages[i] = w
		cur = w
	}
	g.stages = stages
	if len(stages) > 0 {
		g.head = stages[0]
	} else {
		g.head = dst
	}
	return g, nil
}

// Write writes to the first stage in the chain (or directly to dst if the
// group has no stages).
func (g *WriterGroup) Write(p []byte) (int, error) {
	return g.head.Write(p)
}

// Close closes each stage in pipeline order, first to last, so that an
// inner compressor flushes before an outer cipher finalizes its last
// block.
func (g *WriterGroup) Close() error {
	for _, s := range g.stages {
		if err := s.Close(); err != nil {
			return fmt.Errorf("filter: close: %w", err)
		}
	}
	return nil
}

// Results returns each stage's terminal Result(), in pipeline order.
func (g *WriterGroup) Results() []any {
	out := make([]any, len(g.stages))
	for i, s := range g.stages {
		out[i] = s.Result()
	}
	return out
}
