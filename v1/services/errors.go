package services

import "errors"

var (
	// ErrInvalidInput is returned for missing or malformed request fields
	ErrInvalidInput = errors.New("invalid input")

	// ErrUserExists is returned when registering a user ID that is taken
	ErrUserExists = errors.New("User already exists")

	// ErrUserNotFound is returned when the user ID is not registered
	ErrUserNotFound = errors.New("User not found")

	// ErrFaceNotDetected is returned when no face can be read from the image
	ErrFaceNotDetected = errors.New("Face not detected")

	// ErrFaceNotEnrolled is returned when the user has no stored face encoding
	ErrFaceNotEnrolled = errors.New("Face not enrolled")

	// ErrImageTooLarge is returned when the image exceeds the configured size
	ErrImageTooLarge = errors.New("Image too large")

	// ErrEncoderUnavailable is returned when the face encoder cannot be reached
	ErrEncoderUnavailable = errors.New("Face encoder unavailable")

	// ErrTokensDisabled is returned when no token signing secret is configured
	ErrTokensDisabled = errors.New("Verification tokens are not enabled")

	// ErrInvalidToken is returned for expired, malformed or forged tokens
	ErrInvalidToken = errors.New("Invalid or expired token")
)
