// Grafana 웹훅 페이로드 및 개별 알림 구조체를 정의
// handler, service 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의
//
// Grafana 9.x / 10.x unified alerting 웹훅 포맷 기준.
// Alertmanager 포맷의 상위 집합이며 title, state, message, orgId 필드가 추가됨

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// GrafanaWebhook - Grafana 웹훅 페이로드
// 여러 개의 알림(Alerts)이 그룹으로 묶여서 전송 가능
type GrafanaWebhook struct {
	Receiver string `json:"receiver"`
	Status   string `json:"status"`

	// 개별 알림 리스트 (비어있을 수 있음 - 이 경우 Message를 그대로 사용)
	Alerts []SubAlert `json:"alerts"`

	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	TruncatedAlerts   int               `json:"truncatedAlerts"`

	// Grafana 전용 필드
	OrgID   OrgID  `json:"orgId"`
	Title   string `json:"title"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// SubAlert - 개별 알림
// Labels는 JSON에 나타난 순서를 유지함 (SMS 본문에 그대로 나열되기 때문)
type SubAlert struct {
	Status      string            `json:"status"`
	Labels      Labels            `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	// 본문에 쓰이지 않으므로 형식 검증 없이 문자열로 받음
	StartsAt     string `json:"startsAt"`
	EndsAt       string `json:"endsAt"`
	GeneratorURL string `json:"generatorURL"`
	Fingerprint  string `json:"fingerprint"`
	SilenceURL   string `json:"silenceURL"`
	DashboardURL string `json:"dashboardURL"`
	PanelURL     string `json:"panelURL"`
	ValueString  string `json:"valueString"`
}

// Label - 라벨 키-값 쌍
type Label struct {
	Key   string
	Value string
}

// Labels - 삽입 순서가 보존되는 라벨 목록
type Labels []Label

// UnmarshalJSON decodes a JSON object keeping the key order of the document.
// Non-string values are kept as their raw JSON text.
func (l *Labels) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("labels: expected object, got %v", tok)
	}

	out := Labels{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("labels: expected string key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("labels: value of %q: %w", key, err)
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			value = string(raw)
		}
		out = append(out, Label{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*l = out
	return nil
}

// MarshalJSON encodes labels back into a JSON object in the stored order.
func (l Labels) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// OrgID - Grafana는 orgId를 숫자로 보내지만 문자열도 허용
type OrgID string

func (o *OrgID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = OrgID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("orgId: %w", err)
	}
	*o = OrgID(n.String())
	return nil
}

func (o OrgID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(o), 10, 64); err == nil {
		return []byte(o), nil
	}
	return json.Marshal(string(o))
}

// TextMessage - /send 엔드포인트 요청 본문
type TextMessage struct {
	Message string `json:"message"`
}
