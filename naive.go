// Package naive is the userland runtime of the naive microkernel.  It
// multiplexes a single kernel endpoint into many logical channels, each
// one authenticated by the badge that the kernel stamps on its messages.
package naive

import "time"

const Version = "0.1.0"

// Metrics is the instrumentation interface shared by every userland
// service.  Bucket names are dot-separated.
type Metrics interface {
	Incr(bucket string)
	Decr(bucket string)
	Count(bucket string, n any)
	Gauge(bucket string, value any)
	Duration(bucket string, d time.Duration)
	Histogram(bucket string, value any)
	WithPrefix(prefix string) Metrics
	Flush()
}

// NopMetrics discards all measurements.  It is the default for every
// service that does not receive an explicit Metrics instance.
type NopMetrics struct{}

func (NopMetrics) Incr(string)                    {}
func (NopMetrics) Decr(string)                    {}
func (NopMetrics) Count(string, any)              {}
func (NopMetrics) Gauge(string, any)              {}
func (NopMetrics) Duration(string, time.Duration) {}
func (NopMetrics) Histogram(string, any)          {}
func (NopMetrics) Flush()                         {}
func (NopMetrics) WithPrefix(string) Metrics      { return NopMetrics{} }
