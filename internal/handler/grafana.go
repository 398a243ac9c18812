package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kube-rca/smsgate/internal/model"
	"github.com/kube-rca/smsgate/internal/service"
)

// dispatcher - 전송 엔진 인터페이스 (service.DispatchService)
type dispatcher interface {
	Dispatch(ctx context.Context, alert model.GrafanaWebhook, destinations []string, opts service.DispatchOptions) ([]model.DeliveryOutcome, error)
	DispatchText(ctx context.Context, text string, destinations []string, opts service.DispatchOptions) ([]model.DeliveryOutcome, error)
}

// DispatchHandler - /grafana, /send 핸들러
// opts는 서버 설정에서 만든 기본값이고 요청마다 복사해서 사용
type DispatchHandler struct {
	svc  dispatcher
	opts service.DispatchOptions
}

func NewDispatchHandler(svc dispatcher, opts service.DispatchOptions) *DispatchHandler {
	return &DispatchHandler{svc: svc, opts: opts}
}

// GrafanaWebhook godoc
// @Summary Receive a Grafana alert and text it to the given numbers
// @Tags grafana
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param numbers path string true "Numbers separated by ;"
// @Param min_interval path int false "Per number minimum interval in seconds"
// @Param group path string false "Group hint (default yes)"
// @Param request body model.GrafanaWebhook true "Grafana webhook payload"
// @Success 200 {object} model.DispatchResponse
// @Failure 402,404,422,500 {object} model.DispatchResponse
// @Router /grafana/{numbers}/{min_interval}/{group} [post]
func (h *DispatchHandler) GrafanaWebhook(c *gin.Context) {
	destinations := SplitDestinations(c.Param("numbers"))
	if len(destinations) == 0 {
		writeDispatchError(c, http.StatusNotFound, "No phone number set")
		return
	}

	opts := h.opts
	if raw := c.Param("min_interval"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			validationError(c, fmt.Errorf("min_interval: value is not a valid integer: %q", raw))
			return
		}
		opts.PerCallMinInterval = time.Duration(seconds) * time.Second
	}
	opts.Group = parseGroup(c.Param("group"))

	if c.Request.ContentLength == 0 {
		writeDispatchError(c, http.StatusNotFound, "No alert set")
		return
	}
	var alert model.GrafanaWebhook
	if err := c.ShouldBindJSON(&alert); err != nil {
		validationError(c, err)
		return
	}
	if strings.TrimSpace(alert.Message) == "" {
		writeDispatchError(c, http.StatusNotFound, "No alert set")
		return
	}

	log.Info().
		Str("title", alert.Title).
		Str("state", alert.State).
		Int("alertCount", len(alert.Alerts)).
		Strs("numbers", destinations).
		Msg("Received grafana alert")

	outcomes, err := h.svc.Dispatch(c.Request.Context(), alert, destinations, opts)
	writeDispatchResult(c, outcomes, err)
}

// SendText godoc
// @Summary Text a raw message to the given numbers
// @Tags send
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param numbers path string true "Numbers separated by ;"
// @Param request body model.TextMessage true "Message"
// @Success 200 {object} model.DispatchResponse
// @Failure 402,404,422,500 {object} model.DispatchResponse
// @Router /send/{numbers} [post]
func (h *DispatchHandler) SendText(c *gin.Context) {
	destinations := SplitDestinations(c.Param("numbers"))
	if len(destinations) == 0 {
		writeDispatchError(c, http.StatusNotFound, "No phone number set")
		return
	}

	if c.Request.ContentLength == 0 {
		writeDispatchError(c, http.StatusNotFound, "No message set")
		return
	}
	var msg model.TextMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		validationError(c, err)
		return
	}
	if msg.Message == "" {
		writeDispatchError(c, http.StatusNotFound, "No message content")
		return
	}

	log.Info().Strs("numbers", destinations).Msg("Received direct send request")

	outcomes, err := h.svc.DispatchText(c.Request.Context(), msg.Message, destinations, h.opts)
	writeDispatchResult(c, outcomes, err)
}

// SplitDestinations - ';'로 구분된 번호 목록 분리
// 앞뒤 공백 제거, 빈 항목 제외, 작은따옴표는 '-'로 치환
func SplitDestinations(raw string) []string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, service.Sanitize(part))
	}
	return out
}

// parseGroup - 생략 시 "yes"
func parseGroup(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "yes", "y", "true", "1":
		return true
	default:
		return false
	}
}

func writeDispatchResult(c *gin.Context, outcomes []model.DeliveryOutcome, err error) {
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, model.DispatchResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    "Server not configured",
			Data:       outcomes,
		})
		return
	case errors.Is(err, service.ErrNoDestinations):
		writeDispatchError(c, http.StatusNotFound, "No phone number set")
		return
	case err != nil:
		log.Error().Err(err).Msg("Dispatch failed")
		writeDispatchError(c, http.StatusInternalServerError, fmt.Sprintf("Exception %v occured", err))
		return
	}

	var sent, failed, skipped []string
	for _, o := range outcomes {
		switch {
		case o.Sent:
			sent = append(sent, o.Destination)
		case o.Reason.Skipped():
			skipped = append(skipped, o.Destination)
			failed = append(failed, o.Destination)
		default:
			failed = append(failed, o.Destination)
		}
	}
	if len(skipped) > 0 {
		log.Info().Strs("numbers", skipped).Msg("Numbers skipped without running the send command")
	}

	if len(failed) > 0 {
		c.JSON(http.StatusPaymentRequired, model.DispatchResponse{
			StatusCode: http.StatusPaymentRequired,
			Message:    "Cannot send text to: " + strings.Join(failed, ", "),
			Data:       outcomes,
		})
		return
	}
	c.JSON(http.StatusOK, model.DispatchResponse{
		StatusCode: http.StatusOK,
		Message:    "Message sent to: " + strings.Join(sent, ", "),
		Data:       outcomes,
	})
}

func writeDispatchError(c *gin.Context, status int, message string) {
	c.JSON(status, model.DispatchResponse{StatusCode: status, Message: message})
}
