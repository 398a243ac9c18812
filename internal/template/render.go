// Package template expands the configured SMS command line.
//
// 지원하는 변수 형식:
//
//	${NUMBER}            - 목적지 번호 (작은따옴표로 감쌈)
//	${ALERT_MESSAGE}     - 알림 메시지 (작은따옴표로 감쌈)
//	${ALERT_MESSAGE_LEN} - 메시지 길이 (문자 수, 따옴표 제외)
//
// 그 외의 ${...} 표기는 그대로 남겨둡니다.
package template

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	PlaceholderNumber     = "${NUMBER}"
	PlaceholderMessage    = "${ALERT_MESSAGE}"
	PlaceholderMessageLen = "${ALERT_MESSAGE_LEN}"
)

// Expand - 명령 템플릿의 변수를 실제 값으로 치환
//
// 값 안의 작은따옴표는 이스케이프하지 않습니다.
// 호출자가 미리 '를 -로 바꿔둔 값을 넘겨야 합니다 (service.Sanitize).
func Expand(command, destination, message string) string {
	return strings.NewReplacer(
		PlaceholderMessageLen, strconv.Itoa(utf8.RuneCountInString(message)),
		PlaceholderNumber, quote(destination),
		PlaceholderMessage, quote(message),
	).Replace(command)
}

// HasPlaceholders reports whether command references at least the number
// placeholder. Used for a startup warning only.
func HasPlaceholders(command string) bool {
	return strings.Contains(command, PlaceholderNumber)
}

func quote(s string) string {
	return "'" + s + "'"
}
