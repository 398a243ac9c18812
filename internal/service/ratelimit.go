package service

import (
	"sync"
	"time"

	"github.com/kube-rca/smsgate/internal/model"
)

// GlobalLimit - 전체 전송량 제한 (Window 동안 최대 Count건)
type GlobalLimit struct {
	Count  int
	Window time.Duration
}

// Enabled reports whether the limit is usable.
func (g *GlobalLimit) Enabled() bool {
	return g != nil && g.Count > 0 && g.Window > 0
}

// RateLimiter - 번호별 최소 간격 + 전체 sliding window 제한
//
// 상태는 프로세스 메모리에만 존재하며 재시작 시 초기화됩니다.
// 모든 접근은 mu 하나로 직렬화됩니다 (명령 실행 중에는 잡지 않음).
type RateLimiter struct {
	mu sync.Mutex

	// 번호별 마지막 전송(시도) 시각
	lastSent map[string]time.Time
	// 최근 전송 시각, 최대 GlobalLimit.Count개 (오래된 것부터 제거)
	globalLog []time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		lastSent: make(map[string]time.Time),
	}
}

// Check - 지금 destination으로 보내도 되는지 판단 (상태 변경 없음)
func (r *RateLimiter) Check(destination string, now time.Time, opts DispatchOptions) (bool, model.DeliveryReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkLocked(destination, now, opts)
}

// RecordSent - destination 전송 시각 기록
func (r *RateLimiter) RecordSent(destination string, now time.Time, opts DispatchOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordLocked(destination, now, opts)
}

// Admit - Check와 RecordSent를 한 번의 lock 안에서 수행
//
// 동시에 들어온 두 요청이 모두 Check를 통과한 뒤 기록하는 경쟁을 막습니다.
// 허용된 경우 즉시 전송 시도로 기록됩니다.
func (r *RateLimiter) Admit(destination string, now time.Time, opts DispatchOptions) (bool, model.DeliveryReason) {
	r.mu.Lock()
	defer r.mu.Unlock()

	allowed, reason := r.checkLocked(destination, now, opts)
	if allowed {
		r.recordLocked(destination, now, opts)
	}
	return allowed, reason
}

func (r *RateLimiter) checkLocked(destination string, now time.Time, opts DispatchOptions) (bool, model.DeliveryReason) {
	if interval := opts.effectiveMinInterval(); interval > 0 {
		if last, ok := r.lastSent[destination]; ok && now.Sub(last) < interval {
			return false, model.ReasonRateLimitedPerDestination
		}
	}

	if g := opts.GlobalLimit; g.Enabled() && len(r.globalLog) >= g.Count {
		nth := r.globalLog[len(r.globalLog)-g.Count]
		if now.Sub(nth) < g.Window {
			return false, model.ReasonRateLimitedGlobal
		}
	}

	return true, model.ReasonSent
}

func (r *RateLimiter) recordLocked(destination string, now time.Time, opts DispatchOptions) {
	r.lastSent[destination] = now

	g := opts.GlobalLimit
	if !g.Enabled() {
		return
	}
	r.globalLog = append(r.globalLog, now)
	if over := len(r.globalLog) - g.Count; over > 0 {
		// 앞쪽을 잘라내고 새 슬라이스로 복사해 backing array가 계속 커지지 않게 함
		r.globalLog = append([]time.Time(nil), r.globalLog[over:]...)
	}
}

// GlobalLogLen returns the number of timestamps currently kept in the window.
func (r *RateLimiter) GlobalLogLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.globalLog)
}

// Destinations returns how many destinations have a recorded send.
func (r *RateLimiter) Destinations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lastSent)
}
