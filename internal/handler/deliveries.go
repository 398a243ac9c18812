package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kube-rca/smsgate/internal/model"
)

const (
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
)

// DeliveryStore - 전송 이력 조회 인터페이스 (db.Postgres)
type DeliveryStore interface {
	ListDeliveries(ctx context.Context, limit int) ([]model.DeliveryRecord, error)
}

// DeliveryHandler - 전송 이력 핸들러
// store가 nil이면 DB 미설정으로 보고 503을 반환
type DeliveryHandler struct {
	store DeliveryStore
}

func NewDeliveryHandler(store DeliveryStore) *DeliveryHandler {
	return &DeliveryHandler{store: store}
}

// ListDeliveries godoc
// @Summary List recent deliveries
// @Tags deliveries
// @Produce json
// @Security BasicAuth
// @Param limit query int false "Max rows (default 50, max 500)"
// @Success 200 {object} model.DeliveryListResponse
// @Failure 400,500,503 {object} model.ErrorResponse
// @Router /api/v1/deliveries [get]
func (h *DeliveryHandler) ListDeliveries(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "delivery history is not enabled"})
		return
	}

	limit := defaultDeliveryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxDeliveryLimit)
	}

	records, err := h.store.ListDeliveries(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.DeliveryListResponse{Status: "success", Data: records})
}
