package models

import "time"

// RegisterUserRequest is the body of POST /register-user
type RegisterUserRequest struct {
	UserID    string `json:"userId"`
	Password  string `json:"password"`
	FaceImage string `json:"faceImage"`
}

// VerifyPasswordRequest is the body of POST /verify-password
type VerifyPasswordRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// VerifyFaceRequest is the body of POST /verify-face
type VerifyFaceRequest struct {
	UserID    string `json:"userId"`
	FaceImage string `json:"faceImage"`
}

// CheckUserRequest is the body of POST /check-user
type CheckUserRequest struct {
	UserID string `json:"userId"`
}

// RegisterUserResponse is returned after a successful registration
type RegisterUserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyPasswordResponse reports whether the password matched
type VerifyPasswordResponse struct {
	Valid bool   `json:"valid"`
	Token string `json:"token,omitempty"`
}

// VerifyFaceResponse reports whether the face matched and how far apart the encodings were
type VerifyFaceResponse struct {
	Verified bool    `json:"verified"`
	Distance float64 `json:"distance"`
	Token    string  `json:"token,omitempty"`
}

// CheckUserResponse reports whether a user exists
type CheckUserResponse struct {
	Exists bool `json:"exists"`
}

// SessionResponse describes a valid verification token
type SessionResponse struct {
	UserID    string    `json:"userId"`
	Method    string    `json:"method"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ErrorResponse is the error envelope for every endpoint
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}
