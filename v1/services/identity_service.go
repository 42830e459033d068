package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/audit"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/config"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/face"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/monitoring"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/database"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/models"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"
)

// Business actions recorded as metrics
const (
	ActionRegistration         = "registration"
	ActionPasswordVerification = "password_verification"
	ActionFaceVerification     = "face_verification"
	ActionUserLookup           = "user_lookup"
)

const (
	actorTypeMember = "MEMBER"
	targetTypeUser  = "USER"
)

// IdentityService registers users and verifies their password or face
type IdentityService struct {
	repo     database.UserRepository
	encoder  face.Encoder
	settings config.VerificationSettings
	tokens   *TokenIssuer
	auditor  audit.Client
}

// NewIdentityService creates a new identity service. tokens may be nil, in
// which case verifications do not issue tokens.
func NewIdentityService(
	repo database.UserRepository,
	encoder face.Encoder,
	settings config.VerificationSettings,
	tokens *TokenIssuer,
	auditor audit.Client,
) *IdentityService {
	if auditor == nil {
		auditor = audit.NewClient("")
	}
	if settings.FaceTolerance <= 0 {
		settings.FaceTolerance = face.DefaultTolerance
	}
	if settings.BcryptCost == 0 {
		settings.BcryptCost = bcrypt.DefaultCost
	}
	return &IdentityService{
		repo:     repo,
		encoder:  encoder,
		settings: settings,
		tokens:   tokens,
		auditor:  auditor,
	}
}

// TokensEnabled reports whether verification tokens are issued
func (s *IdentityService) TokensEnabled() bool {
	return s.tokens != nil
}

// RegisterUser stores a new user with a bcrypt password hash and a face encoding
func (s *IdentityService) RegisterUser(ctx context.Context, req *models.RegisterUserRequest) (*models.RegisterUserResponse, error) {
	if err := requireFields(map[string]string{
		"userId":    req.UserID,
		"password":  req.Password,
		"faceImage": req.FaceImage,
	}); err != nil {
		return nil, err
	}

	// Existence is checked before the image so duplicates never reach the encoder
	exists, err := s.repo.UserExists(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, ActionRegistration, audit.EventUserRegistration, req.UserID, err)
	}
	if exists {
		return nil, s.reject(ctx, ActionRegistration, audit.EventUserRegistration, req.UserID, ErrUserExists)
	}

	encoding, err := s.encodeFace(ctx, req.FaceImage)
	if err != nil {
		return nil, s.classify(ctx, ActionRegistration, audit.EventUserRegistration, req.UserID, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.settings.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, s.reject(ctx, ActionRegistration, audit.EventUserRegistration, req.UserID,
				fmt.Errorf("%w: password must be at most 72 bytes", ErrInvalidInput))
		}
		return nil, s.fail(ctx, ActionRegistration, audit.EventUserRegistration, req.UserID,
			fmt.Errorf("failed to hash password: %w", err))
	}

	user := &models.User{
		UserID:       req.UserID,
		PasswordHash: string(hash),
		FaceEncoding: models.NewFaceEncoding(encoding),
	}
	if _, err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			return nil, s.reject(ctx, ActionRegistration, audit.EventUserRegistration, req.UserID, ErrUserExists)
		}
		return nil, s.fail(ctx, ActionRegistration, audit.EventUserRegistration, req.UserID, err)
	}

	slog.Info("User registered", "userId", req.UserID)
	monitoring.RecordVerification(ctx, ActionRegistration, monitoring.OutcomeSuccess)
	s.logAudit(ctx, audit.EventUserRegistration, audit.StatusSuccess, req.UserID, nil)

	return &models.RegisterUserResponse{Success: true, Message: "User registered"}, nil
}

// VerifyPassword checks the password against the stored hash. A wrong
// password is a normal result, not an error.
func (s *IdentityService) VerifyPassword(ctx context.Context, req *models.VerifyPasswordRequest) (*models.VerifyPasswordResponse, error) {
	if err := requireFields(map[string]string{
		"userId":   req.UserID,
		"password": req.Password,
	}); err != nil {
		return nil, err
	}

	user, err := s.lookup(ctx, ActionPasswordVerification, audit.EventPasswordVerification, req.UserID)
	if err != nil {
		return nil, err
	}

	valid := true
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, s.fail(ctx, ActionPasswordVerification, audit.EventPasswordVerification, req.UserID,
				fmt.Errorf("failed to compare password hash: %w", err))
		}
		valid = false
	}

	resp := &models.VerifyPasswordResponse{Valid: valid}
	if valid {
		resp.Token, err = s.issueToken(req.UserID, MethodPassword)
		if err != nil {
			return nil, s.fail(ctx, ActionPasswordVerification, audit.EventPasswordVerification, req.UserID, err)
		}
	}

	s.recordResult(ctx, ActionPasswordVerification, audit.EventPasswordVerification, req.UserID, valid,
		map[string]interface{}{"valid": valid})
	return resp, nil
}

// VerifyFace compares the submitted face with the stored encoding
func (s *IdentityService) VerifyFace(ctx context.Context, req *models.VerifyFaceRequest) (*models.VerifyFaceResponse, error) {
	if err := requireFields(map[string]string{
		"userId":    req.UserID,
		"faceImage": req.FaceImage,
	}); err != nil {
		return nil, err
	}

	user, err := s.lookup(ctx, ActionFaceVerification, audit.EventFaceVerification, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.HasFace() {
		return nil, s.reject(ctx, ActionFaceVerification, audit.EventFaceVerification, req.UserID, ErrFaceNotEnrolled)
	}

	candidate, err := s.encodeFace(ctx, req.FaceImage)
	if err != nil {
		return nil, s.classify(ctx, ActionFaceVerification, audit.EventFaceVerification, req.UserID, err)
	}

	verified, distance, err := face.Match(user.FaceEncoding.Encoding(), candidate, s.settings.FaceTolerance)
	if err != nil {
		return nil, s.fail(ctx, ActionFaceVerification, audit.EventFaceVerification, req.UserID,
			fmt.Errorf("failed to compare face encodings: %w", err))
	}
	monitoring.RecordFaceDistance(ctx, distance, verified)

	resp := &models.VerifyFaceResponse{Verified: verified, Distance: distance}
	if verified {
		resp.Token, err = s.issueToken(req.UserID, MethodFace)
		if err != nil {
			return nil, s.fail(ctx, ActionFaceVerification, audit.EventFaceVerification, req.UserID, err)
		}
	}

	s.recordResult(ctx, ActionFaceVerification, audit.EventFaceVerification, req.UserID, verified,
		map[string]interface{}{"verified": verified, "distance": distance})
	return resp, nil
}

// CheckUser reports whether the user ID is registered
func (s *IdentityService) CheckUser(ctx context.Context, req *models.CheckUserRequest) (*models.CheckUserResponse, error) {
	if err := requireFields(map[string]string{"userId": req.UserID}); err != nil {
		return nil, err
	}

	exists, err := s.repo.UserExists(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, ActionUserLookup, audit.EventUserLookup, req.UserID,
			fmt.Errorf("failed to check user: %w", err))
	}

	monitoring.RecordVerification(ctx, ActionUserLookup, monitoring.OutcomeSuccess)
	s.logAudit(ctx, audit.EventUserLookup, audit.StatusSuccess, req.UserID,
		map[string]interface{}{"exists": exists})
	return &models.CheckUserResponse{Exists: exists}, nil
}

// Session validates a verification token and describes it
func (s *IdentityService) Session(ctx context.Context, token string) (*models.SessionResponse, error) {
	if s.tokens == nil {
		return nil, ErrTokensDisabled
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		slog.Debug("Rejected verification token", "error", err)
		return nil, err
	}
	return &models.SessionResponse{
		UserID:    claims.Subject,
		Method:    claims.Method,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// encodeFace decodes the base64 image and asks the encoder for its encoding
func (s *IdentityService) encodeFace(ctx context.Context, faceImage string) (face.Encoding, error) {
	img, err := face.DecodeImage(faceImage, s.settings.MaxImageBytes)
	if err != nil {
		if errors.Is(err, face.ErrImageTooLarge) {
			return nil, ErrImageTooLarge
		}
		return nil, ErrFaceNotDetected
	}

	encoding, err := s.encoder.Encode(ctx, img)
	if err != nil {
		if errors.Is(err, face.ErrNoFace) {
			return nil, ErrFaceNotDetected
		}
		return nil, fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}
	return encoding, nil
}

func (s *IdentityService) lookup(ctx context.Context, action, eventType, userID string) (*models.User, error) {
	user, err := s.repo.GetUserByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, s.reject(ctx, action, eventType, userID, ErrUserNotFound)
		}
		return nil, s.fail(ctx, action, eventType, userID, err)
	}
	return user, nil
}

func (s *IdentityService) issueToken(userID, method string) (string, error) {
	if s.tokens == nil {
		return "", nil
	}
	return s.tokens.Issue(userID, method)
}

// classify routes client-caused errors to reject and the rest to fail
func (s *IdentityService) classify(ctx context.Context, action, eventType, userID string, err error) error {
	switch {
	case errors.Is(err, ErrFaceNotDetected), errors.Is(err, ErrImageTooLarge), errors.Is(err, ErrInvalidInput):
		return s.reject(ctx, action, eventType, userID, err)
	default:
		return s.fail(ctx, action, eventType, userID, err)
	}
}

func (s *IdentityService) reject(ctx context.Context, action, eventType, userID string, err error) error {
	monitoring.RecordVerification(ctx, action, monitoring.OutcomeRejected)
	s.logAudit(ctx, eventType, audit.StatusFailure, userID, map[string]interface{}{"reason": err.Error()})
	return err
}

func (s *IdentityService) fail(ctx context.Context, action, eventType, userID string, err error) error {
	slog.Error("Identity operation failed", "action", action, "userId", userID, "error", err)
	monitoring.RecordVerification(ctx, action, monitoring.OutcomeError)
	s.logAudit(ctx, eventType, audit.StatusFailure, userID, map[string]interface{}{"reason": "internal error"})
	return err
}

func (s *IdentityService) recordResult(ctx context.Context, action, eventType, userID string, ok bool, metadata map[string]interface{}) {
	outcome, status := monitoring.OutcomeSuccess, audit.StatusSuccess
	if !ok {
		outcome, status = monitoring.OutcomeRejected, audit.StatusFailure
	}
	monitoring.RecordVerification(ctx, action, outcome)
	s.logAudit(ctx, eventType, status, userID, metadata)
}

// logAudit sends an audit event; failures are logged and never surface to the caller
func (s *IdentityService) logAudit(ctx context.Context, eventType, status, userID string, metadata map[string]interface{}) {
	event := audit.Event{
		EventType:   audit.StringPtr(eventType),
		EventAction: audit.StringPtr(eventAction(eventType)),
		Status:      status,
		ActorType:   actorTypeMember,
		ActorID:     userID,
		TargetType:  targetTypeUser,
		TargetID:    audit.StringPtr(userID),
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		event.TraceID = audit.StringPtr(reqID)
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			event.ResponseMetadata = raw
		}
	}
	if err := s.auditor.LogEvent(ctx, event); err != nil {
		slog.Warn("Failed to log audit event", "eventType", eventType, "error", err)
	}
}

func eventAction(eventType string) string {
	switch eventType {
	case audit.EventUserRegistration:
		return "CREATE"
	case audit.EventUserLookup:
		return "READ"
	default:
		return "VERIFY"
	}
}

// requireFields rejects empty or whitespace-only values, reporting fields in a
// stable order. Blank identifiers and passwords are never valid credentials.
func requireFields(fields map[string]string) error {
	var missing []string
	for _, name := range []string{"userId", "password", "faceImage"} {
		value, ok := fields[name]
		if ok && strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}
