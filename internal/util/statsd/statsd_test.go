package statsdutil_test

import (
	"testing"
	"time"

	"github.com/lthibault/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	statsdutil "github.com/wetware/naive/internal/util/statsd"
)

type env map[string]string

func (e env) IsSet(name string) bool {
	_, ok := e[name]
	return ok
}

func (e env) String(name string) string { return e[name] }

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := statsdutil.New(env{}, log.New(log.WithLevel(log.FatalLevel)))
	require.IsType(t, statsdutil.Metrics{}, m, "should return statsd client")

	ep := m.WithPrefix("ep")
	assert.NotPanics(t, func() {
		ep.Incr("recv")
		ep.Decr("recv")
		ep.Duration("recv", time.Millisecond)
		m.Flush()
	}, "muted client should discard metrics")
}
