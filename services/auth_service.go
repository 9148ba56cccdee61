package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"offerhub-backend/common/apperror"
	"offerhub-backend/models"
	"offerhub-backend/repository"
	"offerhub-backend/sender"
)

const defaultOTPTTL = 5 * time.Minute

// AuthService owns account registration and every login flow: password
// login for admins and ventures, OTP login for users, plus refresh-token
// rotation and logout. Exactly one refresh token per principal is valid at a
// time; each successful login or refresh overwrites the stored value and
// logout clears it.
type AuthService interface {
	Register(ctx context.Context, role models.Role, req *models.RegisterRequest) (*models.Principal, error)
	Login(ctx context.Context, role models.Role, req *models.LoginRequest) (*models.AuthResponse, error)
	RequestOTP(ctx context.Context, req *models.RequestOTPRequest) error
	VerifyOTP(ctx context.Context, req *models.VerifyOTPRequest) (*models.AuthResponse, error)
	Rotate(ctx context.Context, p *models.Principal) (*models.AuthResponse, error)
	Logout(ctx context.Context, role models.Role, id primitive.ObjectID) error
}

type authServiceImpl struct {
	principals repository.PrincipalRepository
	tokens     *TokenService
	sms        sender.SMSSender
	otpTTL     time.Duration
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	principals repository.PrincipalRepository,
	tokens *TokenService,
	sms sender.SMSSender,
	otpTTL time.Duration,
	logger *zap.Logger,
) AuthService {
	if otpTTL <= 0 {
		otpTTL = defaultOTPTTL
	}
	return &authServiceImpl{
		principals: principals,
		tokens:     tokens,
		sms:        sms,
		otpTTL:     otpTTL,
		logger:     logger,
	}
}

// Register creates an admin or venture account with a bcrypt-hashed
// password. User accounts are created implicitly by the OTP flow instead.
func (s *authServiceImpl) Register(ctx context.Context, role models.Role, req *models.RegisterRequest) (*models.Principal, error) {
	errs := validateStruct(req)
	if role == models.RoleVenture && req.CompanyName == "" {
		errs = append(errs, "companyName is required")
	}
	if len(errs) > 0 {
		return nil, apperror.Validation(errs...)
	}

	if _, err := s.principals.FindByEmail(ctx, role, req.Email); err == nil {
		return nil, apperror.Validation("email already registered")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		s.logger.Error("Failed to check for existing account", zap.String("role", string(role)), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	p := &models.Principal{
		Role:        role,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
		Password:    string(hashed),
	}
	if err := s.principals.Insert(ctx, role, p); err != nil {
		s.logger.Error("Failed to create account", zap.String("role", string(role)), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.logger.Info("Account registered",
		zap.String("role", string(role)),
		zap.String("id", p.ID.Hex()),
	)
	return sanitize(p), nil
}

// Login authenticates by email and password. Unknown email and wrong
// password report identically so the endpoint cannot be used to probe which
// addresses have accounts.
func (s *authServiceImpl) Login(ctx context.Context, role models.Role, req *models.LoginRequest) (*models.AuthResponse, error) {
	if errs := validateStruct(req); len(errs) > 0 {
		return nil, apperror.Validation(errs...)
	}

	p, err := s.principals.FindByEmail(ctx, role, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.Validation("Invalid email or password")
		}
		s.logger.Error("Failed to look up account", zap.String("role", string(role)), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Validation("Invalid email or password")
	}

	s.logger.Info("Login", zap.String("role", string(role)), zap.String("id", p.ID.Hex()))
	return s.issueSession(ctx, p)
}

// RequestOTP stores a fresh one-time code against the phone number, creating
// the user record on first contact, and dispatches it over SMS.
func (s *authServiceImpl) RequestOTP(ctx context.Context, req *models.RequestOTPRequest) error {
	if errs := validateStruct(req); len(errs) > 0 {
		return apperror.Validation(errs...)
	}

	code := generateOTPCode(6)
	expiresAt := time.Now().UTC().Add(s.otpTTL)

	if _, err := s.principals.UpsertOTPByPhone(ctx, req.Phone, code, expiresAt); err != nil {
		s.logger.Error("Failed to store OTP", zap.Error(err))
		return apperror.Internal(err)
	}

	msg := fmt.Sprintf("Your OfferHub verification code is %s. It expires in %d minutes.", code, int(s.otpTTL.Minutes()))
	if _, err := s.sms.SendSMS(ctx, req.Phone, msg); err != nil {
		s.logger.Error("Failed to send OTP", zap.Error(err))
		return apperror.Internal(err)
	}

	s.logger.Info("OTP dispatched", zap.String("phone", req.Phone))
	return nil
}

// VerifyOTP exchanges a valid one-time code for a token pair. The code is
// single-use: it is cleared before tokens are issued.
func (s *authServiceImpl) VerifyOTP(ctx context.Context, req *models.VerifyOTPRequest) (*models.AuthResponse, error) {
	if errs := validateStruct(req); len(errs) > 0 {
		return nil, apperror.Validation(errs...)
	}

	p, err := s.principals.FindByPhone(ctx, req.Phone)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.Validation("Invalid or expired code")
		}
		s.logger.Error("Failed to look up user by phone", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	if p.OTPCode == "" || p.OTPCode != req.Code || time.Now().UTC().After(p.OTPExpiresAt) {
		return nil, apperror.Validation("Invalid or expired code")
	}

	if err := s.principals.ClearOTP(ctx, p.ID); err != nil {
		s.logger.Error("Failed to clear OTP", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.logger.Info("OTP verified", zap.String("id", p.ID.Hex()))
	return s.issueSession(ctx, p)
}

// Rotate issues a fresh token pair and replaces the stored refresh token,
// invalidating the one just presented. The caller has already checked the
// presented token against the stored value.
func (s *authServiceImpl) Rotate(ctx context.Context, p *models.Principal) (*models.AuthResponse, error) {
	s.logger.Info("Refresh token rotated", zap.String("role", string(p.Role)), zap.String("id", p.ID.Hex()))
	return s.issueSession(ctx, p)
}

// Logout clears the stored refresh token, so any outstanding refresh token
// stops working immediately. Access tokens stay valid until they expire.
func (s *authServiceImpl) Logout(ctx context.Context, role models.Role, id primitive.ObjectID) error {
	if err := s.principals.ClearRefreshToken(ctx, role, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperror.NotFound("Account not found")
		}
		s.logger.Error("Failed to clear refresh token", zap.String("id", id.Hex()), zap.Error(err))
		return apperror.Internal(err)
	}

	s.logger.Info("Logout", zap.String("role", string(role)), zap.String("id", id.Hex()))
	return nil
}

// issueSession generates a token pair and persists the refresh token on the
// principal record, making it the only refresh token that will verify.
func (s *authServiceImpl) issueSession(ctx context.Context, p *models.Principal) (*models.AuthResponse, error) {
	pair, err := s.tokens.GenerateTokenPair(p)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.String("id", p.ID.Hex()), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	if err := s.principals.SetRefreshToken(ctx, p.Role, p.ID, pair.RefreshToken); err != nil {
		s.logger.Error("Failed to persist refresh token", zap.String("id", p.ID.Hex()), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	return &models.AuthResponse{
		Principal:    sanitize(p),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// sanitize strips credential material from a principal before it leaves the
// service. The json tags already hide these fields; zeroing them keeps a
// logged or cached copy clean too.
func sanitize(p *models.Principal) *models.Principal {
	clean := *p
	clean.Password = ""
	clean.RefreshToken = ""
	clean.OTPCode = ""
	clean.OTPExpiresAt = time.Time{}
	return &clean
}

func generateOTPCode(length int) string {
	code := make([]byte, length)
	for i := range code {
		code[i] = byte('0' + rand.Intn(10))
	}
	return string(code)
}
