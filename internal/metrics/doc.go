// Package metrics provides rebuild metrics for ulyssesdeck.
//
// Components receive a Recorder through their options and default to
// NoopRecorder, so no nil checks are needed at call sites. The watch command
// swaps in a PrometheusRecorder when metrics are enabled and serves it with
// HTTPHandler.
package metrics
