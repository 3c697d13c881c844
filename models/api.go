package models

import "time"

// APIResponse is the uniform envelope for every HTTP response.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// OK builds a success envelope with data.
func OK(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data, Timestamp: time.Now()}
}

// OKMessage builds a success envelope with data and a message.
func OKMessage(data interface{}, message string) APIResponse {
	return APIResponse{Success: true, Data: data, Message: message, Timestamp: time.Now()}
}

// Fail builds a failure envelope.
func Fail(message string) APIResponse {
	return APIResponse{Success: false, Message: message, Timestamp: time.Now()}
}
