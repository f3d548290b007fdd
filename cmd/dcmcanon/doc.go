// Package main hosts the dcmcanon CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration, checks that every
// converter in the tool chain is installed, and then hands a directory tree to
// the conversion pipeline. Around that core it surfaces the run journal
// (history, failures, retry), stale temp file cleanup, tool availability
// checks, and configuration scaffolding.
//
// Keep this package lean: behaviour belongs in the internal packages, and the
// commands here only wire them together and render results.
package main
