package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"offerhub-backend/common/apperror"
	"offerhub-backend/models"
	"offerhub-backend/repository"
	"offerhub-backend/sender"
	"offerhub-backend/services"
)

// --- Mock Principal Repository ---

type mockPrincipalRepo struct {
	records map[models.Role]map[primitive.ObjectID]*models.Principal
}

func newMockPrincipalRepo() *mockPrincipalRepo {
	return &mockPrincipalRepo{
		records: map[models.Role]map[primitive.ObjectID]*models.Principal{
			models.RoleUser:    {},
			models.RoleAdmin:   {},
			models.RoleVenture: {},
		},
	}
}

func (m *mockPrincipalRepo) Insert(_ context.Context, role models.Role, p *models.Principal) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	cp := *p
	m.records[role][p.ID] = &cp
	return nil
}

func (m *mockPrincipalRepo) FindByID(_ context.Context, role models.Role, id primitive.ObjectID) (*models.Principal, error) {
	p, ok := m.records[role][id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *p
	cp.Password = ""
	cp.RefreshToken = ""
	cp.OTPCode = ""
	cp.OTPExpiresAt = time.Time{}
	return &cp, nil
}

func (m *mockPrincipalRepo) FindByIDWithSecrets(_ context.Context, role models.Role, id primitive.ObjectID) (*models.Principal, error) {
	p, ok := m.records[role][id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *p
	return &cp, nil
}

func (m *mockPrincipalRepo) FindByEmail(_ context.Context, role models.Role, email string) (*models.Principal, error) {
	for _, p := range m.records[role] {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *mockPrincipalRepo) FindByPhone(_ context.Context, phone string) (*models.Principal, error) {
	for _, p := range m.records[models.RoleUser] {
		if p.Phone == phone {
			cp := *p
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *mockPrincipalRepo) UpsertOTPByPhone(_ context.Context, phone, code string, expiresAt time.Time) (*models.Principal, error) {
	for _, p := range m.records[models.RoleUser] {
		if p.Phone == phone {
			p.OTPCode = code
			p.OTPExpiresAt = expiresAt
			cp := *p
			return &cp, nil
		}
	}
	p := &models.Principal{
		ID:           primitive.NewObjectID(),
		Role:         models.RoleUser,
		Phone:        phone,
		OTPCode:      code,
		OTPExpiresAt: expiresAt,
	}
	m.records[models.RoleUser][p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *mockPrincipalRepo) ClearOTP(_ context.Context, id primitive.ObjectID) error {
	p, ok := m.records[models.RoleUser][id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	p.OTPCode = ""
	p.OTPExpiresAt = time.Time{}
	return nil
}

func (m *mockPrincipalRepo) SetRefreshToken(_ context.Context, role models.Role, id primitive.ObjectID, token string) error {
	p, ok := m.records[role][id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	p.RefreshToken = token
	return nil
}

func (m *mockPrincipalRepo) ClearRefreshToken(_ context.Context, role models.Role, id primitive.ObjectID) error {
	p, ok := m.records[role][id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	p.RefreshToken = ""
	return nil
}

var _ repository.PrincipalRepository = (*mockPrincipalRepo)(nil)

// --- Mock SMS Sender ---

type mockSMSSender struct {
	messages []string
	to       []string
}

func (m *mockSMSSender) SendSMS(_ context.Context, to, msg string) (sender.SendResult, error) {
	m.to = append(m.to, to)
	m.messages = append(m.messages, msg)
	return sender.SendResult{MessageID: "mock-1", SentAt: time.Now()}, nil
}

// --- Helpers ---

func newTestAuthService(t *testing.T, repo repository.PrincipalRepository, sms *mockSMSSender) services.AuthService {
	t.Helper()
	tokens, err := services.NewTokenService(testSecrets(), time.Hour, 24*time.Hour)
	assert.NoError(t, err)
	return services.NewAuthService(repo, tokens, sms, 5*time.Minute, zap.NewNop())
}

func ventureRegistration() *models.RegisterRequest {
	return &models.RegisterRequest{
		Name:        "Chai Point",
		Email:       "owner@chaipoint.example",
		Phone:       "+919900112233",
		CompanyName: "Chai Point Pvt Ltd",
		Password:    "correct-horse",
	}
}

// --- Registration ---

func TestAuthRegister_HashesPassword(t *testing.T) {
	repo := newMockPrincipalRepo()
	svc := newTestAuthService(t, repo, &mockSMSSender{})

	p, err := svc.Register(context.Background(), models.RoleVenture, ventureRegistration())
	assert.NoError(t, err)
	assert.Empty(t, p.Password, "credential material never leaves the service")

	stored := repo.records[models.RoleVenture][p.ID]
	assert.NotEqual(t, "correct-horse", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("correct-horse")))
}

func TestAuthRegister_DuplicateEmail(t *testing.T) {
	repo := newMockPrincipalRepo()
	svc := newTestAuthService(t, repo, &mockSMSSender{})

	_, err := svc.Register(context.Background(), models.RoleVenture, ventureRegistration())
	assert.NoError(t, err)

	_, err = svc.Register(context.Background(), models.RoleVenture, ventureRegistration())
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestAuthRegister_ShortPassword(t *testing.T) {
	svc := newTestAuthService(t, newMockPrincipalRepo(), &mockSMSSender{})

	req := ventureRegistration()
	req.Password = "short"

	_, err := svc.Register(context.Background(), models.RoleVenture, req)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestAuthRegister_VentureNeedsCompanyName(t *testing.T) {
	svc := newTestAuthService(t, newMockPrincipalRepo(), &mockSMSSender{})

	req := ventureRegistration()
	req.CompanyName = ""

	_, err := svc.Register(context.Background(), models.RoleVenture, req)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

// --- Password login ---

func TestAuthLogin_PersistsRefreshToken(t *testing.T) {
	repo := newMockPrincipalRepo()
	svc := newTestAuthService(t, repo, &mockSMSSender{})

	p, _ := svc.Register(context.Background(), models.RoleVenture, ventureRegistration())

	auth, err := svc.Login(context.Background(), models.RoleVenture, &models.LoginRequest{
		Email:    "owner@chaipoint.example",
		Password: "correct-horse",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, auth.AccessToken)
	assert.NotEmpty(t, auth.RefreshToken)

	stored := repo.records[models.RoleVenture][p.ID]
	assert.Equal(t, auth.RefreshToken, stored.RefreshToken)
}

func TestAuthLogin_WrongPasswordAndUnknownEmailLookIdentical(t *testing.T) {
	repo := newMockPrincipalRepo()
	svc := newTestAuthService(t, repo, &mockSMSSender{})

	_, _ = svc.Register(context.Background(), models.RoleVenture, ventureRegistration())

	_, errWrongPass := svc.Login(context.Background(), models.RoleVenture, &models.LoginRequest{
		Email:    "owner@chaipoint.example",
		Password: "wrong-password",
	})
	_, errNoAccount := svc.Login(context.Background(), models.RoleVenture, &models.LoginRequest{
		Email:    "nobody@chaipoint.example",
		Password: "whatever-pass",
	})

	assert.True(t, apperror.Is(errWrongPass, apperror.KindValidation))
	assert.True(t, apperror.Is(errNoAccount, apperror.KindValidation))
	assert.Equal(t, apperror.From(errWrongPass).Message, apperror.From(errNoAccount).Message)
}

// --- OTP login ---

func TestAuthOTPFlow_VerifyIssuesSessionAndClearsCode(t *testing.T) {
	repo := newMockPrincipalRepo()
	sms := &mockSMSSender{}
	svc := newTestAuthService(t, repo, sms)

	phone := "+919876543210"
	assert.NoError(t, svc.RequestOTP(context.Background(), &models.RequestOTPRequest{Phone: phone}))
	assert.Len(t, sms.messages, 1)

	user, err := repo.FindByPhone(context.Background(), phone)
	assert.NoError(t, err)
	assert.Len(t, user.OTPCode, 6)

	auth, err := svc.VerifyOTP(context.Background(), &models.VerifyOTPRequest{Phone: phone, Code: user.OTPCode})
	assert.NoError(t, err)
	assert.NotEmpty(t, auth.AccessToken)

	stored := repo.records[models.RoleUser][user.ID]
	assert.Empty(t, stored.OTPCode, "the code is single-use")
	assert.Equal(t, auth.RefreshToken, stored.RefreshToken)
}

func TestAuthOTPFlow_WrongCode(t *testing.T) {
	repo := newMockPrincipalRepo()
	svc := newTestAuthService(t, repo, &mockSMSSender{})

	phone := "+919876543210"
	assert.NoError(t, svc.RequestOTP(context.Background(), &models.RequestOTPRequest{Phone: phone}))

	_, err := svc.VerifyOTP(context.Background(), &models.VerifyOTPRequest{Phone: phone, Code: "000000"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestAuthOTPFlow_ExpiredCode(t *testing.T) {
	repo := newMockPrincipalRepo()
	svc := newTestAuthService(t, repo, &mockSMSSender{})

	phone := "+919876543210"
	_, err := repo.UpsertOTPByPhone(context.Background(), phone, "123456", time.Now().UTC().Add(-time.Minute))
	assert.NoError(t, err)

	_, err = svc.VerifyOTP(context.Background(), &models.VerifyOTPRequest{Phone: phone, Code: "123456"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

// --- Rotation and logout ---

func TestAuthRotate_ReplacesStoredRefreshToken(t *testing.T) {
	repo := newMockPrincipalRepo()
	svc := newTestAuthService(t, repo, &mockSMSSender{})

	p, _ := svc.Register(context.Background(), models.RoleAdmin, ventureRegistration())
	first, err := svc.Login(context.Background(), models.RoleAdmin, &models.LoginRequest{
		Email:    "owner@chaipoint.example",
		Password: "correct-horse",
	})
	assert.NoError(t, err)

	stored := repo.records[models.RoleAdmin][p.ID]
	rotated, err := svc.Rotate(context.Background(), stored)
	assert.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, rotated.RefreshToken, stored.RefreshToken)
}

func TestAuthLogout_ClearsStoredRefreshToken(t *testing.T) {
	repo := newMockPrincipalRepo()
	svc := newTestAuthService(t, repo, &mockSMSSender{})

	p, _ := svc.Register(context.Background(), models.RoleVenture, ventureRegistration())
	_, err := svc.Login(context.Background(), models.RoleVenture, &models.LoginRequest{
		Email:    "owner@chaipoint.example",
		Password: "correct-horse",
	})
	assert.NoError(t, err)

	assert.NoError(t, svc.Logout(context.Background(), models.RoleVenture, p.ID))
	assert.Empty(t, repo.records[models.RoleVenture][p.ID].RefreshToken)
}
