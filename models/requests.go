package models

import "encoding/json"

// SessionRequest is sent once the external identity provider has vouched for the email.
type SessionRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

type SessionResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type UpdateUserRequest struct {
	Name   string  `json:"name" binding:"required"`
	Phone  *string `json:"phone"`
	Avatar *string `json:"avatar"`
}

type CreateReportRequest struct {
	Location           string          `json:"location" binding:"required"`
	WasteType          string          `json:"wasteType" binding:"required"`
	Amount             string          `json:"amount" binding:"required"`
	ImageURL           *string         `json:"imageUrl"`
	VerificationResult json.RawMessage `json:"verificationResult"`
}

type AnalyzeRequest struct {
	Image string `json:"image" binding:"required"`
}

type UpdateTaskStatusRequest struct {
	Status      string `json:"status" binding:"required,taskstatus"`
	CollectorID *int64 `json:"collectorId"`
}

// VerifyTaskRequest carries either an image for the classifier or a
// classifier result the client already obtained.
type VerifyTaskRequest struct {
	Image  string          `json:"image"`
	Result json.RawMessage `json:"result"`
}

type VerifyTaskResponse struct {
	Success        bool    `json:"success"`
	WasteTypeMatch bool    `json:"wasteTypeMatch"`
	QuantityMatch  bool    `json:"quantityMatch"`
	Confidence     float64 `json:"confidence"`
	Reward         int     `json:"reward,omitempty"`
	Message        string  `json:"message"`
}

type CreateStationRequest struct {
	Name         string `json:"name" binding:"required"`
	Location     string `json:"location" binding:"required"`
	RecycleTypes string `json:"recycleTypes" binding:"required"`
	ActiveStatus bool   `json:"activeStatus"`
}

type BalanceResponse struct {
	Balance     float64 `json:"balance"`
	TotalPoints float64 `json:"totalPoints"`
}
