// 알림 전송 비즈니스 로직 정의
// handler에서 받은 알림으로 SMS 본문을 만들고 번호별로 전송 명령을 실행
//
// 처리 흐름:
//  1. 전제 조건 확인 (번호 목록, 전송 명령 설정)
//  2. 메시지 작성 (호출당 한 번, 모든 번호에 동일한 본문)
//  3. 번호별로:
//     - RateLimiter.Admit (번호별 간격 + 전체 sliding window)
//     - 명령 템플릿 확장
//     - 명령 실행, 종료 코드로 성공/실패 판정
//  4. 결과를 전송 이력 저장소에 기록 (설정된 경우, 실패해도 무시)
//  5. 번호별 결과 목록 반환
//
// 개별 번호 실패 시 로그만 남기고 나머지 번호는 계속 전송합니다.
// 재시도는 하지 않습니다.

package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kube-rca/smsgate/internal/model"
	tmpl "github.com/kube-rca/smsgate/internal/template"
)

var (
	// ErrNotConfigured - 전송 명령(sms_command)이 설정되지 않음
	ErrNotConfigured = errors.New("send command not configured")
	// ErrNoDestinations - 전송할 번호가 없음
	ErrNoDestinations = errors.New("no destination given")
)

// DispatchOptions - 호출 단위 설정 스냅샷
type DispatchOptions struct {
	// URL로 전달된 번호별 최소 간격 (0 = 미설정)
	PerCallMinInterval time.Duration
	// 서버 설정 번호별 최소 간격 (0 = 미설정)
	ServerMinInterval time.Duration
	// 전체 전송량 제한 (nil = 미설정)
	GlobalLimit *GlobalLimit

	MaxMessageLength int
	SupervisionName  string
	CommandTemplate  string

	// 그룹 전송 힌트. 로깅에만 사용됨
	Group bool
}

func (o DispatchOptions) effectiveMinInterval() time.Duration {
	return max(o.PerCallMinInterval, o.ServerMinInterval)
}

func (o DispatchOptions) maxMessageLength() int {
	if o.MaxMessageLength <= 0 {
		return DefaultMaxMessageLength
	}
	return o.MaxMessageLength
}

func (o DispatchOptions) supervisionName() string {
	if o.SupervisionName == "" {
		return DefaultSupervisionName
	}
	return o.SupervisionName
}

// messageComposer - 메시지 작성 인터페이스
type messageComposer interface {
	Compose(alert model.GrafanaWebhook, supervisionName string, maxLength int) string
}

// commandRunner - 전송 명령 실행 인터페이스 (client.CommandClient)
type commandRunner interface {
	Run(ctx context.Context, command string) (int, string)
}

// deliveryRecorder - 전송 이력 저장 인터페이스 (db.Postgres)
type deliveryRecorder interface {
	InsertDeliveries(ctx context.Context, dispatchID string, outcomes []model.DeliveryOutcome) error
}

// DispatchService - 알림 전송 엔진
type DispatchService struct {
	composer messageComposer
	limiter  *RateLimiter
	runner   commandRunner
	recorder deliveryRecorder
	now      func() time.Time
}

// NewDispatchService 생성자
func NewDispatchService(limiter *RateLimiter, runner commandRunner) *DispatchService {
	if limiter == nil {
		limiter = NewRateLimiter()
	}
	return &DispatchService{
		composer: NewComposer(),
		limiter:  limiter,
		runner:   runner,
		now:      time.Now,
	}
}

func (s *DispatchService) WithComposer(c messageComposer) *DispatchService {
	s.composer = c
	return s
}

func (s *DispatchService) WithRecorder(r deliveryRecorder) *DispatchService {
	s.recorder = r
	return s
}

func (s *DispatchService) WithClock(now func() time.Time) *DispatchService {
	s.now = now
	return s
}

// Dispatch - Grafana 알림을 번호 목록으로 전송
//
// 번호가 없으면 ErrNoDestinations, 전송 명령이 없으면 모든 번호에 대해
// not_configured 결과와 ErrNotConfigured를 반환합니다.
func (s *DispatchService) Dispatch(ctx context.Context, alert model.GrafanaWebhook, destinations []string, opts DispatchOptions) ([]model.DeliveryOutcome, error) {
	if len(destinations) == 0 {
		return nil, ErrNoDestinations
	}
	if opts.CommandTemplate == "" {
		log.Error().Msg("No sms commandline tool defined")
		return notConfigured(destinations), ErrNotConfigured
	}

	message := s.composer.Compose(alert, opts.supervisionName(), opts.maxMessageLength())
	return s.deliver(ctx, message, destinations, opts), nil
}

// DispatchText - 알림 형식 없이 텍스트를 그대로 전송 (/send)
func (s *DispatchService) DispatchText(ctx context.Context, text string, destinations []string, opts DispatchOptions) ([]model.DeliveryOutcome, error) {
	if len(destinations) == 0 {
		return nil, ErrNoDestinations
	}
	if opts.CommandTemplate == "" {
		log.Error().Msg("No sms commandline tool defined")
		return notConfigured(destinations), ErrNotConfigured
	}

	message := Truncate(Sanitize(text), opts.maxMessageLength())
	return s.deliver(ctx, message, destinations, opts), nil
}

func (s *DispatchService) deliver(ctx context.Context, message string, destinations []string, opts DispatchOptions) []model.DeliveryOutcome {
	dispatchID := uuid.NewString()
	logger := log.With().Str("dispatch_id", dispatchID).Logger()
	logger.Debug().
		Int("destinations", len(destinations)).
		Bool("group", opts.Group).
		Int("message_len", len([]rune(message))).
		Msg("Dispatching message")

	outcomes := make([]model.DeliveryOutcome, 0, len(destinations))
	for _, dest := range destinations {
		allowed, reason := s.limiter.Admit(dest, s.now(), opts)
		if !allowed {
			logger.Info().Str("number", dest).Str("reason", string(reason)).Msg("Rate limit reached, not sending this SMS")
			outcomes = append(outcomes, model.DeliveryOutcome{Destination: dest, Reason: reason})
			observeOutcome(reason)
			continue
		}

		command := tmpl.Expand(opts.CommandTemplate, dest, message)
		logger.Debug().Str("command", command).Msg("Running send command")

		start := time.Now()
		exitCode, output := s.runner.Run(ctx, command)
		observeCommand(exitCode, time.Since(start))

		outcome := model.DeliveryOutcome{
			Destination:     dest,
			CommandExitCode: &exitCode,
			CommandOutput:   &output,
		}
		if exitCode == 0 {
			outcome.Sent = true
			outcome.Reason = model.ReasonSent
			logger.Info().Str("number", dest).Msg("Sent SMS")
		} else {
			outcome.Reason = model.ReasonCommandFailed
			logger.Error().Str("number", dest).Int("exit_code", exitCode).Str("output", output).Msg("Could not send SMS")
		}
		observeOutcome(outcome.Reason)
		outcomes = append(outcomes, outcome)
	}

	if s.recorder != nil {
		if err := s.recorder.InsertDeliveries(context.WithoutCancel(ctx), dispatchID, outcomes); err != nil {
			logger.Error().Err(err).Msg("Failed to record deliveries")
		}
	}
	return outcomes
}

func notConfigured(destinations []string) []model.DeliveryOutcome {
	outcomes := make([]model.DeliveryOutcome, 0, len(destinations))
	for _, dest := range destinations {
		outcomes = append(outcomes, model.DeliveryOutcome{Destination: dest, Reason: model.ReasonNotConfigured})
		observeOutcome(model.ReasonNotConfigured)
	}
	return outcomes
}
