package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/face"
)

// User is a registered identity
type User struct {
	ID           uint          `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID       string        `gorm:"column:user_id;type:varchar(255);uniqueIndex;not null" json:"userId"`
	PasswordHash string        `gorm:"column:password_hash;type:text;not null" json:"-"`
	FaceEncoding *FaceEncoding `gorm:"column:face_encoding;type:text" json:"-"`

	BaseModel
}

// TableName sets the table name for User model
func (User) TableName() string {
	return "users"
}

// HasFace reports whether a face encoding is enrolled
func (u *User) HasFace() bool {
	return u.FaceEncoding != nil && len(*u.FaceEncoding) > 0
}

// FaceEncoding stores a face.Encoding as a JSON array in a text column
type FaceEncoding face.Encoding

// NewFaceEncoding wraps an encoding for storage
func NewFaceEncoding(enc face.Encoding) *FaceEncoding {
	fe := FaceEncoding(enc)
	return &fe
}

// Encoding returns the stored encoding
func (f FaceEncoding) Encoding() face.Encoding {
	return face.Encoding(f)
}

// Value implements driver.Valuer
func (f FaceEncoding) Value() (driver.Value, error) {
	data, err := json.Marshal([]float64(f))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal face encoding: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (f *FaceEncoding) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*f = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported face encoding column type %T", value)
	}

	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to unmarshal face encoding: %w", err)
	}
	*f = FaceEncoding(values)
	return nil
}
