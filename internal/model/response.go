package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	App string `json:"app"`
}

// DispatchResponse - /grafana, /send 응답 envelope
type DispatchResponse struct {
	StatusCode int               `json:"status_code"`
	Message    string            `json:"message"`
	Data       []DeliveryOutcome `json:"data"`
}
