// Package main hosts the trustframe CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration, builds the logger and
// opens the fingerprint store once per invocation, then hands off to the
// workflow package. Rendering lives here; comparison logic does not.
package main
