// Package chanx provides the two message-passing primitives the scheduler
// engine is built on: an unbounded multi-producer/single-consumer channel and
// a single-value reply channel that reports when its sender was dropped.
package chanx
