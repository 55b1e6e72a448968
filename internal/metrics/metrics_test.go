package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("/api/donations", "POST", 201, 12*time.Millisecond)
	m.RecordHTTPRequest("/api/donations", "POST", 201, 8*time.Millisecond)
	m.RecordDonationCreated()
	m.RecordTransition("success")
	m.RecordGatewayError("create_order")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/donations", "POST", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DonationsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PaymentTransitions.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GatewayErrors.WithLabelValues("create_order")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordDonationCreated()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.DonationsCreated))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.DonationsCreated))
}

func TestRegistryExposesNamespace(t *testing.T) {
	m := New()
	m.RecordTransition("failed")

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "donations_") {
			names = append(names, mf.GetName())
		}
	}
	assert.Contains(t, names, "donations_payment_transitions_total")
	assert.Contains(t, names, "donations_donations_created_total")
}
