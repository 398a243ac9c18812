package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter - 라우트 등록
//
//	GET  /ping, /metrics               인증 없음
//	GET  /                             인증
//	POST /grafana/:numbers[/:min_interval[/:group]]
//	POST /send/:numbers
//	GET  /api/v1/deliveries
func NewRouter(dispatch *DispatchHandler, deliveries *DeliveryHandler, auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	router.GET("/ping", Ping)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := router.Group("/", auth)
	authed.GET("/", Root)

	authed.POST("/grafana/:numbers", dispatch.GrafanaWebhook)
	authed.POST("/grafana/:numbers/:min_interval", dispatch.GrafanaWebhook)
	authed.POST("/grafana/:numbers/:min_interval/:group", dispatch.GrafanaWebhook)
	authed.POST("/send/:numbers", dispatch.SendText)

	authed.GET("/api/v1/deliveries", deliveries.ListDeliveries)

	return router
}
