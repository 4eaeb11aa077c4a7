package enrollment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"tradeledger/internal/domain"
	"tradeledger/internal/ledger"
	"tradeledger/internal/secrets"
	"tradeledger/internal/signer"
	dErrors "tradeledger/pkg/domain-errors"
	"tradeledger/pkg/platform/sentinel"
	"tradeledger/pkg/requestcontext"
)

// Service owns onboarding: super-admin bootstrap, user requests and their
// approval, API credentials, and the full platform reset.
type Service struct {
	repo    *Repo
	users   *ledger.Repo
	ledgers *ledger.Service
	signer  *signer.Service
	logger  *slog.Logger
}

func NewService(repo *Repo, users *ledger.Repo, ledgers *ledger.Service, signer *signer.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, users: users, ledgers: ledgers, signer: signer, logger: logger}
}

// RequestResult is returned from CreateUserRequest. Secret is non-empty only
// when the call created a new user; it is the one and only disclosure.
type RequestResult struct {
	RequestID string `json:"requestId"`
	Secret    string `json:"secret,omitempty"`
}

// CreateSuperAdmin bootstraps the platform: the caller becomes the global
// Admin. Works exactly once, while no users exist yet.
func (s *Service) CreateSuperAdmin(ctx context.Context) (string, error) {
	registry, err := s.users.LoadUserRegistry(ctx)
	if err != nil {
		return "", err
	}
	if len(registry) > 0 {
		return "", dErrors.New(dErrors.CodeConflict, "super admin already exists")
	}

	sender := requestcontext.Sender(ctx)
	user := domain.NewUser(sender, domain.LedgerRole{
		SharedLedgerID: SuperAdminScope,
		Role:           domain.RoleAdmin,
		Jurisdiction:   domain.JurisdictionGlobal,
	})
	if err := s.users.SaveUser(ctx, user); err != nil {
		return "", err
	}
	if err := s.users.SaveUserRegistry(ctx, []string{sender}); err != nil {
		return "", err
	}

	secret, err := s.issueCredential(ctx, sender)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "super admin bootstrapped", "sender", sender)
	return secret, nil
}

// CreateUserRequest records a pending role request. First-time callers also
// get a user record and an API secret; the requested role is held on the user
// but ledger membership waits for approval.
func (s *Service) CreateUserRequest(ctx context.Context, slid string, role domain.RoleType, jurisdiction domain.JurisdictionType) (*RequestResult, error) {
	sender := requestcontext.Sender(ctx)

	var secret string
	_, err := s.users.LoadUser(ctx, sender)
	switch {
	case err == nil:
		// Known user, no new credential.
	case errors.Is(err, sentinel.ErrNotFound):
		user := domain.NewUser(sender, domain.LedgerRole{
			SharedLedgerID: slid,
			Role:           role,
			Jurisdiction:   jurisdiction,
		})
		if err := s.users.SaveUser(ctx, user); err != nil {
			return nil, err
		}
		registry, err := s.users.LoadUserRegistry(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.users.SaveUserRegistry(ctx, append(registry, sender)); err != nil {
			return nil, err
		}
		if secret, err = s.issueCredential(ctx, sender); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	req := &Request{
		ID:             uuid.NewString(),
		UserID:         sender,
		SharedLedgerID: slid,
		Role:           role,
		Jurisdiction:   jurisdiction,
	}
	if err := s.repo.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	registry, err := s.repo.LoadRequestRegistry(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveRequestRegistry(ctx, append(registry, req.ID)); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user request created",
		"requestId", req.ID, "slid", slid, "role", string(role), "sender", sender)
	return &RequestResult{RequestID: req.ID, Secret: secret}, nil
}

// ListRequests returns the ids of all pending user requests.
func (s *Service) ListRequests(ctx context.Context) ([]string, error) {
	if err := s.requireSenderUser(ctx); err != nil {
		return nil, err
	}
	return s.repo.LoadRequestRegistry(ctx)
}

// GetRequest returns one pending request.
func (s *Service) GetRequest(ctx context.Context, id string) (*Request, error) {
	if err := s.requireSenderUser(ctx); err != nil {
		return nil, err
	}
	req, err := s.repo.LoadRequest(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user request not found")
		}
		return nil, err
	}
	return req, nil
}

// Approve grants a pending request. Super-admin requests assign the Admin
// role directly; anything else enrolls the requester into the target ledger.
// The request is removed either way.
func (s *Service) Approve(ctx context.Context, requestID string) error {
	if err := s.requireSenderUser(ctx); err != nil {
		return err
	}
	req, err := s.repo.LoadRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user request not found")
		}
		return err
	}

	if req.IsSuperAdmin() {
		user, err := s.users.LoadUser(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "user not found")
			}
			return err
		}
		user.UpdateRole(domain.LedgerRole{
			SharedLedgerID: req.SharedLedgerID,
			Role:           req.Role,
			Jurisdiction:   req.Jurisdiction,
		})
		if err := s.users.SaveUser(ctx, user); err != nil {
			return err
		}
	} else {
		if err := s.ledgers.Enroll(ctx, req.SharedLedgerID, req.UserID, req.Role, req.Jurisdiction); err != nil {
			return err
		}
	}

	if err := s.repo.DeleteRequest(ctx, requestID); err != nil {
		return err
	}
	registry, err := s.repo.LoadRequestRegistry(ctx)
	if err != nil {
		return err
	}
	kept := registry[:0]
	for _, id := range registry {
		if id != requestID {
			kept = append(kept, id)
		}
	}
	if err := s.repo.SaveRequestRegistry(ctx, kept); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "user request approved",
		"requestId", requestID, "userId", req.UserID, "slid", req.SharedLedgerID)
	return nil
}

// EnrollWithoutApproval enrolls the caller straight into a ledger, skipping
// the request workflow. The caller must already have a user record.
func (s *Service) EnrollWithoutApproval(ctx context.Context, slid string, role domain.RoleType, jurisdiction domain.JurisdictionType) error {
	return s.ledgers.Enroll(ctx, slid, requestcontext.Sender(ctx), role, jurisdiction)
}

// VerifyCredential checks a user's API secret for the login flow.
func (s *Service) VerifyCredential(ctx context.Context, userID, secret string) error {
	cred, err := s.repo.LoadCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "unknown user")
		}
		return err
	}
	return secrets.Verify(secret, cred.SecretHash)
}

// ClearAll wipes the platform: every ledger with its trades and users, the
// registries, pending requests, credentials, and the signing identity.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.requireSenderUser(ctx); err != nil {
		return err
	}
	if err := s.ledgers.DeleteAllLedgers(ctx); err != nil {
		return err
	}

	userIDs, err := s.users.LoadUserRegistry(ctx)
	if err != nil {
		return err
	}
	for _, id := range userIDs {
		if err := s.users.DeleteUser(ctx, id); err != nil {
			return err
		}
		if err := s.repo.DeleteCredential(ctx, id); err != nil {
			return err
		}
	}
	if err := s.users.SaveUserRegistry(ctx, nil); err != nil {
		return err
	}

	requestIDs, err := s.repo.LoadRequestRegistry(ctx)
	if err != nil {
		return err
	}
	for _, id := range requestIDs {
		if err := s.repo.DeleteRequest(ctx, id); err != nil {
			return err
		}
	}
	if err := s.repo.SaveRequestRegistry(ctx, nil); err != nil {
		return err
	}

	if err := s.signer.Clear(ctx); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "platform cleared", "sender", requestcontext.Sender(ctx))
	return nil
}

func (s *Service) requireSenderUser(ctx context.Context) error {
	_, err := s.users.LoadUser(ctx, requestcontext.Sender(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return err
	}
	return nil
}

func (s *Service) issueCredential(ctx context.Context, userID string) (string, error) {
	secret, err := secrets.Generate()
	if err != nil {
		return "", err
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return "", err
	}
	if err := s.repo.SaveCredential(ctx, &Credential{UserID: userID, SecretHash: hash}); err != nil {
		return "", err
	}
	return secret, nil
}
