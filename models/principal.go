package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role identifies which kind of principal a token or record belongs to.
// Each role has its own collection and its own signing secrets, so tokens
// are never valid across roles.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleVenture Role = "venture"
)

// CollectionName returns the MongoDB collection storing principals of this role.
func (r Role) CollectionName() string {
	switch r {
	case RoleAdmin:
		return "admins"
	case RoleVenture:
		return "ventures"
	default:
		return "users"
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleVenture:
		return true
	}
	return false
}

// Principal is an authenticated actor: a user, an admin or a venture.
// Users are phone-identified and log in with a one-time code; admins and
// ventures carry a bcrypt password hash. Exactly one refresh token is valid
// per principal at any time: it is written on login/refresh and cleared on
// logout, and never serialized into responses.
type Principal struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Role         Role               `bson:"role" json:"role"`
	Name         string             `bson:"name,omitempty" json:"name,omitempty"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	CompanyName  string             `bson:"companyName,omitempty" json:"companyName,omitempty"`
	Password     string             `bson:"password,omitempty" json:"-"`
	RefreshToken string             `bson:"refreshToken,omitempty" json:"-"`
	OTPCode      string             `bson:"otpCode,omitempty" json:"-"`
	OTPExpiresAt time.Time          `bson:"otpExpiresAt,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Identity returns the claim embedded in access tokens: email when present,
// otherwise phone.
func (p *Principal) Identity() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Phone
}

// RegisterRequest is the payload for creating an admin or venture account.
type RegisterRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"omitempty,e164"`
	CompanyName string `json:"companyName" validate:"omitempty,max=120"`
	Password    string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the payload for password-based login (admin, venture).
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RequestOTPRequest asks for a one-time code to be sent to a phone number.
type RequestOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// VerifyOTPRequest exchanges a one-time code for a token pair.
type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// AuthResponse is the data payload returned by login, OTP verification and
// token refresh.
type AuthResponse struct {
	Principal    *Principal `json:"principal"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}
