package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kube-rca/smsgate/internal/config"
	"github.com/kube-rca/smsgate/internal/service"
)

func TestDispatchOptions(t *testing.T) {
	cfg := config.Config{
		SupervisionName: "NOC",
		SMSCommand:      "send ${NUMBER}",
		AlertMaxLength:  160,
		MinInterval:     300,
		GlobalRateLimit: "10/3600",
	}

	opts := dispatchOptions(cfg)
	assert.Equal(t, 5*time.Minute, opts.ServerMinInterval)
	assert.Zero(t, opts.PerCallMinInterval)
	assert.Equal(t, 160, opts.MaxMessageLength)
	assert.Equal(t, "NOC", opts.SupervisionName)
	assert.Equal(t, "send ${NUMBER}", opts.CommandTemplate)
	require.NotNil(t, opts.GlobalLimit)
	assert.Equal(t, service.GlobalLimit{Count: 10, Window: time.Hour}, *opts.GlobalLimit)
}

func TestDispatchOptionsBogusGlobalLimit(t *testing.T) {
	for _, raw := range []string{"", "ten/60", "5"} {
		opts := dispatchOptions(config.Config{GlobalRateLimit: raw})
		assert.Nil(t, opts.GlobalLimit, raw)
	}
}
