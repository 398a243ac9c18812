package model

import "time"

// DeliveryReason - 목적지별 전송 결과 사유
type DeliveryReason string

const (
	ReasonSent                      DeliveryReason = "sent"
	ReasonRateLimitedPerDestination DeliveryReason = "rate_limited_destination"
	ReasonRateLimitedGlobal         DeliveryReason = "rate_limited_global"
	ReasonCommandFailed             DeliveryReason = "command_failed"
	ReasonNotConfigured             DeliveryReason = "not_configured"
)

// Skipped reports whether the destination was never attempted.
func (r DeliveryReason) Skipped() bool {
	return r == ReasonRateLimitedPerDestination || r == ReasonRateLimitedGlobal || r == ReasonNotConfigured
}

// DeliveryOutcome - 목적지 하나에 대한 전송 결과
// CommandExitCode, CommandOutput은 명령이 실제로 실행된 경우에만 채워짐
type DeliveryOutcome struct {
	Destination     string         `json:"destination"`
	Sent            bool           `json:"sent"`
	Reason          DeliveryReason `json:"reason"`
	CommandExitCode *int           `json:"commandExitCode,omitempty"`
	CommandOutput   *string        `json:"commandOutput,omitempty"`
}

// DeliveryRecord - delivery_log 테이블에 저장되는 전송 이력
type DeliveryRecord struct {
	ID          int64          `json:"id"`
	DispatchID  string         `json:"dispatchId"`
	Destination string         `json:"destination"`
	Sent        bool           `json:"sent"`
	Reason      DeliveryReason `json:"reason"`
	ExitCode    *int           `json:"exitCode,omitempty"`
	Output      *string        `json:"output,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// DeliveryListResponse - 전송 이력 조회 응답
type DeliveryListResponse struct {
	Status string           `json:"status"`
	Data   []DeliveryRecord `json:"data"`
}
