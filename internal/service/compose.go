package service

import (
	"strings"

	"github.com/kube-rca/smsgate/internal/model"
)

const (
	DefaultSupervisionName  = "Supervision"
	DefaultMaxMessageLength = 2500

	truncationMarker = "..."
)

// Composer - Grafana 알림을 SMS 본문으로 변환
//
// 메시지 형식:
//
//	{supervisionName} org {orgId}: {title}
//	ALERT {status}:
//	- {label}={value}
//	...
//
// 하위 알림이 없으면 헤더 다음 줄에 message 원문을 붙입니다.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// Compose builds the message and truncates it to maxLength characters.
func (c *Composer) Compose(alert model.GrafanaWebhook, supervisionName string, maxLength int) string {
	title := Sanitize(alert.Title)
	orgID := Sanitize(string(alert.OrgID))
	message := Sanitize(alert.Message)

	var b strings.Builder
	b.WriteString(supervisionName)
	b.WriteString(" org ")
	b.WriteString(orgID)
	b.WriteString(": ")
	b.WriteString(title)

	if len(alert.Alerts) == 0 {
		b.WriteString("\n")
		b.WriteString(message)
		return Truncate(b.String(), maxLength)
	}

	for _, sub := range alert.Alerts {
		b.WriteString("\n")
		b.WriteString("ALERT ")
		b.WriteString(sub.Status)
		b.WriteString(":\n")
		for _, label := range sub.Labels {
			b.WriteString("- ")
			b.WriteString(label.Key)
			b.WriteString("=")
			b.WriteString(label.Value)
			b.WriteString("\n")
		}
	}
	return Truncate(b.String(), maxLength)
}

// Sanitize - 작은따옴표를 하이픈으로 치환
//
// 이스케이프가 아닌 손실 치환입니다. 명령 템플릿이 값을 '...'로 감싸기 때문에
// 값 안에 '가 남아있으면 셸 인자가 깨집니다.
func Sanitize(s string) string {
	return strings.ReplaceAll(s, "'", "-")
}

// Truncate - maxLength 문자를 넘으면 maxLength-3 문자 + "..."로 자름
// maxLength가 3 이하면 "..."의 앞부분만 남습니다.
func Truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= len(truncationMarker) {
		if maxLength <= 0 {
			return ""
		}
		return truncationMarker[:maxLength]
	}
	return string(runes[:maxLength-len(truncationMarker)]) + truncationMarker
}
