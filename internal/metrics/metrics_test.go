package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGetReturnsSingleton(t *testing.T) {
	a := Initialize()
	b := Get()
	assert.Same(t, a, b)
}

func TestNotificationCounterByKind(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.NotificationsCreated.WithLabelValues("LIKE-CITIZEN"))

	m.NotificationsCreated.WithLabelValues("LIKE-CITIZEN").Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(m.NotificationsCreated.WithLabelValues("LIKE-CITIZEN")))
}
