package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/kube-rca/smsgate/internal/model"
)

const authUserKey = "auth_user"

// BasicAuthMiddleware - HTTP Basic 인증
// password가 bcrypt 해시($2a$, $2b$, $2y$)면 해시 비교, 아니면 평문 비교
func BasicAuthMiddleware(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok || !checkCredentials(user, pass, username, password) {
			c.Header("WWW-Authenticate", `Basic realm="smsgate"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Incorrect username or password"})
			return
		}
		c.Set(authUserKey, user)
		c.Next()
	}
}

// AnonymousAuth - no_auth 설정 시 사용
func AnonymousAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(authUserKey, "anonymous")
		c.Next()
	}
}

func GetAuthUser(c *gin.Context) string {
	return c.GetString(authUserKey)
}

func checkCredentials(user, pass, wantUser, wantPass string) bool {
	if wantUser == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1

	var passOK bool
	if IsBcryptHash(wantPass) {
		passOK = bcrypt.CompareHashAndPassword([]byte(wantPass), []byte(pass)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1
	}
	return userOK && passOK
}

func IsBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// RequestLogger - gin 기본 로거 대신 zerolog로 요청 로그
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// validationError - 요청 본문/경로 검증 실패 시 422
func validationError(c *gin.Context, err error) {
	msg := strings.Join(strings.Fields(err.Error()), " ")
	log.Error().Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg(msg)
	c.JSON(http.StatusUnprocessableEntity, model.DispatchResponse{
		StatusCode: http.StatusUnprocessableEntity,
		Message:    msg,
	})
}
