package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelsUnmarshalKeepsOrder(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Labels
		wantErr bool
	}{
		{
			name:  "document-order",
			input: `{"z":"1","a":"2","m":"3"}`,
			want:  Labels{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}, {Key: "m", Value: "3"}},
		},
		{
			name:  "non-string-values-raw",
			input: `{"z":"1","count":3,"ok":true,"n":null,"obj":{"x":1}}`,
			want: Labels{
				{Key: "z", Value: "1"},
				{Key: "count", Value: "3"},
				{Key: "ok", Value: "true"},
				{Key: "n", Value: ""},
				{Key: "obj", Value: `{"x":1}`},
			},
		},
		{name: "empty-object", input: `{}`, want: Labels{}},
		{name: "null", input: `null`, want: nil},
		{name: "array", input: `["a","b"]`, wantErr: true},
		{name: "string", input: `"a=b"`, wantErr: true},
		{name: "truncated", input: `{"a":"1"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Labels
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabelsMarshalKeepsOrder(t *testing.T) {
	data, err := json.Marshal(Labels{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}})
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"2"}`, string(data))
}

func TestOrgIDUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OrgID
		wantErr bool
	}{
		{name: "number", input: `{"orgId":1}`, want: "1"},
		{name: "large-number", input: `{"orgId":1234567}`, want: "1234567"},
		{name: "string", input: `{"orgId":"main"}`, want: "main"},
		{name: "null", input: `{"orgId":null}`, want: ""},
		{name: "missing", input: `{}`, want: ""},
		{name: "object", input: `{"orgId":{}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w GrafanaWebhook
			err := json.Unmarshal([]byte(tt.input), &w)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.OrgID)
		})
	}
}

func TestGrafanaWebhookTolerantTimestamps(t *testing.T) {
	inputs := []string{
		`{"message":"m","alerts":[{"status":"firing","labels":{},"startsAt":""}]}`,
		`{"message":"m","alerts":[{"status":"firing","labels":{},"startsAt":"yesterday","endsAt":"0001-01-01T00:00:00Z"}]}`,
		`{"message":"m","alerts":[{"status":"resolved","labels":{"a":"b"}}]}`,
	}

	for _, input := range inputs {
		var w GrafanaWebhook
		require.NoError(t, json.Unmarshal([]byte(input), &w), input)
		require.Len(t, w.Alerts, 1)
	}
}

func TestGrafanaWebhookDecodesSubAlerts(t *testing.T) {
	input := `{
		"title":"[FIRING:1] HighLoad",
		"orgId":1,
		"message":"load is high",
		"alerts":[{"status":"firing","labels":{"severity":"critical","alertname":"HighLoad"},"startsAt":"2024-03-09T12:00:00Z"}]
	}`

	var w GrafanaWebhook
	require.NoError(t, json.Unmarshal([]byte(input), &w))
	assert.Equal(t, OrgID("1"), w.OrgID)
	require.Len(t, w.Alerts, 1)
	assert.Equal(t, "firing", w.Alerts[0].Status)
	assert.Equal(t, "2024-03-09T12:00:00Z", w.Alerts[0].StartsAt)
	assert.Equal(t, Labels{{Key: "severity", Value: "critical"}, {Key: "alertname", Value: "HighLoad"}}, w.Alerts[0].Labels)
}

func TestDeliveryReasonSkipped(t *testing.T) {
	assert.True(t, ReasonRateLimitedPerDestination.Skipped())
	assert.True(t, ReasonRateLimitedGlobal.Skipped())
	assert.True(t, ReasonNotConfigured.Skipped())
	assert.False(t, ReasonSent.Skipped())
	assert.False(t, ReasonCommandFailed.Skipped())
}
