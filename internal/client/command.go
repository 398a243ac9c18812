// SMS 전송 명령 실행 클라이언트
//
// 확장된 명령 문자열을 POSIX 셸 문법으로 파싱하여 실행합니다.
// 셸 해석은 mvdan.cc/sh 인터프리터가 프로세스 내부에서 수행하고,
// 외부 프로그램(gammu-smsd-inject 등)만 하위 프로세스로 실행됩니다.

package client

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ExitCodeUnknown - 파싱 실패, 실행 불가, 타임아웃 등 종료 코드가 없는 경우
const ExitCodeUnknown = -1

// CommandClient - 전송 명령 실행기
type CommandClient struct {
	timeout time.Duration
}

// NewCommandClient 생성자
// timeout이 0이면 명령이 끝날 때까지 제한 없이 기다립니다.
func NewCommandClient(timeout time.Duration) *CommandClient {
	return &CommandClient{timeout: timeout}
}

// Run - 명령을 실행하고 종료 코드와 stdout/stderr 합친 출력을 반환
//
// 호출자의 취소(ctx cancel)는 전파하지 않습니다. 이미 시작된 전송은
// 클라이언트 연결이 끊겨도 끝까지 실행되며, 설정된 timeout만 적용됩니다.
func (c *CommandClient) Run(ctx context.Context, command string) (int, string) {
	runCtx := context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, c.timeout)
		defer cancel()
	}

	file, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return ExitCodeUnknown, fmt.Sprintf("invalid command line: %v", err)
	}

	var out bytes.Buffer
	runner, err := interp.New(interp.StdIO(nil, &out, &out))
	if err != nil {
		return ExitCodeUnknown, fmt.Sprintf("failed to create shell runner: %v", err)
	}

	start := time.Now()
	err = runner.Run(runCtx, file)
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		log.Warn().Dur("timeout", c.timeout).Msg("send command timed out")
		return ExitCodeUnknown, out.String() + fmt.Sprintf("command timed out after %s", c.timeout)
	}

	if err == nil {
		log.Debug().Dur("elapsed", elapsed).Msg("send command finished")
		return 0, out.String()
	}

	if status, ok := interp.IsExitStatus(err); ok {
		return int(status), out.String()
	}
	return ExitCodeUnknown, out.String() + err.Error()
}
