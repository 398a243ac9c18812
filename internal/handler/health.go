package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kube-rca/smsgate/internal/model"
)

const AppName = "Grafana Alerts to commands"

// 헬스체크 엔드포인트
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// 루트 엔드포인트 (인증 필요)
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{App: AppName})
}
