package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/karjoohq/karjoo/internal/auth"
	"github.com/karjoohq/karjoo/internal/cache"
	"github.com/karjoohq/karjoo/internal/config"
	"github.com/karjoohq/karjoo/internal/models"
	pkgauth "github.com/karjoohq/karjoo/pkg/auth"
	pkglogger "github.com/karjoohq/karjoo/pkg/logger"
)

// CodeCache is the ephemeral store for one-time codes
type CodeCache interface {
	Get(ctx context.Context, key string) (string, error)
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	GetDel(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Notifier delivers a one-time code to the user out of band
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// TxRunner runs a function inside a database transaction
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// OTPService drives the two-step code flows: OTP login, registration,
// password reset and email confirmation. Each purpose has its own key
// namespace and TTL, so codes are never interchangeable across flows.
type OTPService struct {
	repo        UserRepository
	blockRepo   UserBlockRepository
	codes       CodeCache
	tm          *auth.TokenManager
	tx          TxRunner
	notifier    Notifier
	cfg         config.CodesConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewOTPService(
	repo UserRepository,
	blockRepo UserBlockRepository,
	codes CodeCache,
	tm *auth.TokenManager,
	tx TxRunner,
	notifier Notifier,
	cfg config.CodesConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *OTPService {
	return &OTPService{
		repo:        repo,
		blockRepo:   blockRepo,
		codes:       codes,
		tm:          tm,
		tx:          tx,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RegisterRequest carries the profile submitted together with the
// registration code.
type RegisterRequest struct {
	Email     string
	FirstName string
	LastName  string
	Role      models.Role
	Code      string
	Password  string
}

// RequestLoginCode issues a login OTP for an existing account.
func (s *OTPService) RequestLoginCode(ctx context.Context, email string) error {
	email = normalizeSubject(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up user for login code", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !user.IsActive {
		return models.ErrNotFound
	}

	return s.issueCode(ctx, s.cfg.Login, email, email, "Your sign-in code")
}

// VerifyLoginCode consumes a login OTP and signs the user in.
func (s *OTPService) VerifyLoginCode(ctx context.Context, email, code string) (*models.CredentialPair, error) {
	email = normalizeSubject(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up user for login verify", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !user.IsActive {
		return nil, models.ErrNotFound
	}

	blocked, err := s.blockRepo.IsBlocked(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to check block list", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if blocked {
		return nil, models.ErrUserBlocked
	}

	if err := s.consumeCode(ctx, s.cfg.Login, email, code); err != nil {
		return nil, err
	}

	pair, err := s.tm.IssuePair(user)
	if err != nil {
		s.logger.Error("failed to issue credential pair", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record last login", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.logger.Info("otp login succeeded", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "otp_login_success",
		UserID:    user.ID,
		Success:   true,
	})

	return pair, nil
}

// RequestRegistrationCode issues a code for a not-yet-registered email.
func (s *OTPService) RequestRegistrationCode(ctx context.Context, email string) error {
	email = normalizeSubject(email)

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return models.ErrUserExists
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check registration email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return s.issueCode(ctx, s.cfg.Registration, email, email, "Confirm your registration")
}

// Register consumes a registration code, creates the account and signs
// it in. The user row and the credential pair are issued atomically: if
// signing fails, the row is rolled back.
func (s *OTPService) Register(ctx context.Context, req RegisterRequest) (*models.CredentialPair, error) {
	email := normalizeSubject(req.Email)

	if !models.ValidRole(req.Role) || req.Role == models.RoleAdmin {
		return nil, models.ErrBadRequest
	}

	if err := s.consumeCode(ctx, s.cfg.Registration, email, req.Code); err != nil {
		return nil, err
	}

	var passwordHash string
	if req.Password != "" {
		if err := pkgauth.ValidatePassword(req.Password); err != nil {
			return nil, err
		}
		hash, err := pkgauth.HashPassword(req.Password)
		if err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		passwordHash = hash
	}

	var pair *models.CredentialPair
	err := s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		user, err := s.repo.CreateInTx(ctx, tx, &models.User{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			Role:         req.Role,
			IsActive:     true,
			IsVerified:   true, // email ownership proven by the code
		})
		if err != nil {
			return err
		}

		pair, err = s.tm.IssuePair(user)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrUserExists
		}
		s.logger.Error("registration failed", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered")
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "user_registered",
		Success:   true,
	})

	return pair, nil
}

// RequestPasswordResetCode issues a reset code for an existing account.
func (s *OTPService) RequestPasswordResetCode(ctx context.Context, email string) error {
	email = normalizeSubject(email)

	if _, err := s.repo.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return s.issueCode(ctx, s.cfg.Reset, email, email, "Your password reset code")
}

// ResetPassword consumes a reset code and sets a new password.
func (s *OTPService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeSubject(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	if err := s.consumeCode(ctx, s.cfg.Reset, email, code); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "password_reset",
		UserID:    user.ID,
		Success:   true,
	})

	return nil
}

// RequestConfirmationCode issues an email-confirmation code for the
// authenticated user. Confirmation codes are keyed by user id.
func (s *OTPService) RequestConfirmationCode(ctx context.Context, userID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up user for confirmation", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if user.IsVerified {
		return models.ErrConflict
	}

	return s.issueCode(ctx, s.cfg.Confirmation, user.ID, user.Email, "Confirm your email address")
}

// ConfirmEmail consumes a confirmation code and marks the user verified.
func (s *OTPService) ConfirmEmail(ctx context.Context, userID, code string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up user for confirmation", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.consumeCode(ctx, s.cfg.Confirmation, user.ID, code); err != nil {
		return err
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		s.logger.Error("failed to mark user verified", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("email confirmed", slog.String("user_id", user.ID))
	return nil
}

// issueCode atomically stores a fresh code for (purpose, subject) and
// dispatches it. At most one code per subject can be outstanding.
func (s *OTPService) issueCode(ctx context.Context, cc config.CodeConfig, subject, recipient, emailSubject string) error {
	code, err := randomCode(cc.Length)
	if err != nil {
		s.logger.Error("failed to generate code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	key := fmt.Sprintf(cc.KeyTemplate, subject)
	stored, err := s.codes.SetIfAbsent(ctx, key, code, cc.TTL)
	if err != nil {
		s.logger.Error("failed to store code", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !stored {
		return models.ErrCodeAlreadySent
	}

	s.dispatch(recipient, emailSubject, code, cc.TTL)
	return nil
}

// consumeCode verifies a supplied code and consumes it on success. A
// wrong guess consumes nothing; when several verifiers race with the
// correct code, GETDEL lets exactly one of them through.
func (s *OTPService) consumeCode(ctx context.Context, cc config.CodeConfig, subject, supplied string) error {
	key := fmt.Sprintf(cc.KeyTemplate, subject)

	stored, err := s.codes.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			// absent and expired are indistinguishable
			return models.ErrCodeWrong
		}
		s.logger.Error("failed to read code", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if supplied == "" || stored != supplied {
		return models.ErrCodeWrong
	}

	won, err := s.codes.GetDel(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			// a concurrent verifier consumed it first
			return models.ErrCodeWrong
		}
		s.logger.Error("failed to consume code", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if won != supplied {
		return models.ErrCodeWrong
	}

	return nil
}

// dispatch sends the code fire-and-forget; delivery failures are logged
// and never surface to the caller.
func (s *OTPService) dispatch(recipient, subject, code string, ttl time.Duration) {
	if s.notifier == nil {
		s.logger.Debug("notifier disabled, code not dispatched")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		body := fmt.Sprintf("Your code is %s. It expires in %s.", code, ttl)
		if err := s.notifier.Notify(ctx, recipient, subject, body); err != nil {
			s.logger.Error("failed to dispatch code",
				slog.String("recipient", pkglogger.SanitizedEmail(recipient)),
				slog.Any("error", err))
		}
	}()
}

// randomCode returns a uniformly random fixed-length digit string.
// Leading zeros are allowed.
func randomCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length %d", length)
	}

	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", length, n), nil
}

func normalizeSubject(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
