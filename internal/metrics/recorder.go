// Package metrics exposes switch activity to Prometheus.
//
// Components take a Recorder; NoopRecorder is the default so nothing needs
// nil checks when metrics are disabled.
package metrics

import "time"

// Recorder receives switch events
type Recorder interface {
	ObserveRun(kind, outcome string, d time.Duration)
	IncPhase(phase, status string)
	IncCheckIn(outcome string)
	SetLastActive(ms int64)
	SetFinalSendCount(n int)
	SetStoreDegraded(degraded bool)
}

// NoopRecorder discards everything
type NoopRecorder struct{}

func (NoopRecorder) ObserveRun(string, string, time.Duration) {}
func (NoopRecorder) IncPhase(string, string)                  {}
func (NoopRecorder) IncCheckIn(string)                        {}
func (NoopRecorder) SetLastActive(int64)                      {}
func (NoopRecorder) SetFinalSendCount(int)                    {}
func (NoopRecorder) SetStoreDegraded(bool)                    {}
