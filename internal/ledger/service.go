package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"tradeledger/internal/audit"
	"tradeledger/internal/domain"
	ledgermetrics "tradeledger/internal/ledger/metrics"
	"tradeledger/internal/matching"
	"tradeledger/internal/signer"
	"tradeledger/internal/token"
	dErrors "tradeledger/pkg/domain-errors"
	"tradeledger/pkg/platform/sentinel"
	"tradeledger/pkg/requestcontext"
)

// Auditor records ledger-level operation events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates every shared-ledger operation: membership gating,
// capability-token checks, match evaluation, status progression, and
// per-role projection. The hosting layer serializes invocations, so each
// method is one load-modify-save unit.
type Service struct {
	repo    *Repo
	signer  *signer.Service
	logger  *slog.Logger
	metrics *ledgermetrics.Metrics
	policy  ProjectionPolicy
	matches MatchPolicy
	auditor Auditor
}

// MatchPolicy configures the levenshtein acceptance gate. The original policy
// accepts any unsupported key: the sentinel distance (-1) passes every
// non-negative threshold, so e.g. an AMLSanction member can log underSanction
// through the levenshtein path. Set RejectUnsupportedKeys to true to refuse
// those keys instead of recording a match.
type MatchPolicy struct {
	RejectUnsupportedKeys bool
}

// DefaultMatchPolicy preserves the original acceptance behavior.
var DefaultMatchPolicy = MatchPolicy{RejectUnsupportedKeys: false}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

func WithProjectionPolicy(p ProjectionPolicy) Option {
	return func(s *Service) { s.policy = p }
}

func WithMatchPolicy(p MatchPolicy) Option {
	return func(s *Service) { s.matches = p }
}

func NewService(repo *Repo, signer *signer.Service, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		signer:  signer,
		logger:  slog.Default(),
		policy:  DefaultProjectionPolicy,
		matches: DefaultMatchPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitTradeInput carries the submission payload. UTI is optional; one is
// generated when empty.
type SubmitTradeInput struct {
	UTI  string
	Info domain.TradeInfo
}

// SubmitTradeResult returns the identifier and the bearer capability. The
// token is handed out exactly once, here.
type SubmitTradeResult struct {
	UTI      string `json:"UTI"`
	TokenB64 string `json:"tokenB64"`
}

// TradeIdentification addresses one trade for read/action operations.
type TradeIdentification struct {
	UTI      string `json:"UTI"`
	TokenB64 string `json:"tokenB64"`
}

// CommentInput appends to a trade's public or private comment stream.
type CommentInput struct {
	UTI      string
	TokenB64 string
	Public   bool
	Metadata string
}

// ExactMatchInput asserts literal equality of one creation fact.
type ExactMatchInput struct {
	UTI      string
	TokenB64 string
	Key      string
	Value    string
}

// BoundaryMatchInput asserts a strict numeric range around one creation fact.
type BoundaryMatchInput struct {
	UTI      string
	TokenB64 string
	Key      string
	Min      float64
	Max      float64
}

// LevenshteinMatchInput asserts fuzzy equality within an edit-distance bound.
type LevenshteinMatchInput struct {
	UTI         string
	TokenB64    string
	Key         string
	Value       string
	MaxDistance int
}

// Content is the member view of a whole ledger, each trade projected for the
// caller's role.
type Content struct {
	Locked bool           `json:"locked"`
	Trades []domain.Trade `json:"trades"`
}

// DetailResult is one entry of a batch detail read.
type DetailResult struct {
	UTI   string        `json:"UTI"`
	Trade *domain.Trade `json:"trade,omitempty"`
	Err   string        `json:"error,omitempty"`
}

// CreateLedger registers a new shared ledger and auto-enrolls the creator.
// The id may be caller-supplied; duplicates are rejected.
func (s *Service) CreateLedger(ctx context.Context, slid string) (string, error) {
	sender := requestcontext.Sender(ctx)
	if _, err := s.senderUser(ctx); err != nil {
		return "", err
	}

	registry, err := s.repo.LoadLedgerRegistry(ctx)
	if err != nil {
		return "", err
	}
	if slid != "" {
		for _, id := range registry {
			if id == slid {
				return "", dErrors.Newf(dErrors.CodeConflict, "shared ledger %s already exists", slid)
			}
		}
	}

	ledger := domain.NewSharedLedger(slid)
	ledger.AddUser(sender)
	if err := s.repo.SaveLedger(ctx, ledger); err != nil {
		return "", err
	}
	if err := s.repo.SaveLedgerRegistry(ctx, append(registry, ledger.ID)); err != nil {
		return "", err
	}

	s.emit(ctx, audit.ActionLedgerCreated, ledger.ID)
	s.logger.InfoContext(ctx, "shared ledger created", "slid", ledger.ID, "sender", sender)
	return ledger.ID, nil
}

// ListLedgers returns all known shared ledger ids.
func (s *Service) ListLedgers(ctx context.Context) ([]string, error) {
	return s.repo.LoadLedgerRegistry(ctx)
}

// UserContent returns the caller's own user record with its per-ledger roles.
func (s *Service) UserContent(ctx context.Context) (*domain.User, error) {
	return s.senderUser(ctx)
}

// SubmitTrade stores a new trade on the ledger and issues its capability
// token. Requires membership, an unlocked ledger, and a usable signing
// identity.
func (s *Service) SubmitTrade(ctx context.Context, slid string, in SubmitTradeInput) (*SubmitTradeResult, error) {
	sender := requestcontext.Sender(ctx)
	ledger, err := s.mutableLedger(ctx, slid)
	if err != nil {
		return nil, err
	}
	if in.UTI != "" && ledger.HasTrade(in.UTI) {
		return nil, dErrors.Newf(dErrors.CodeConflict, "trade %s already exists in this shared ledger", in.UTI)
	}

	key, err := s.signer.Load(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	trade := domain.NewTrade(in.UTI, sender, now, in.Info)
	tokenB64, err := token.NewIssuer(key).Issue(trade.UTI)
	if err != nil {
		return nil, err
	}
	trade.TokenB64 = tokenB64

	if err := s.repo.SaveTrade(ctx, trade); err != nil {
		return nil, err
	}
	ledger.AddTrade(trade.UTI)
	if err := s.repo.SaveLedger(ctx, ledger); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TradesSubmitted.Inc()
	}
	s.emit(ctx, audit.ActionTradeSubmitted, trade.UTI)
	s.logger.InfoContext(ctx, "trade submitted", "slid", slid, "uti", trade.UTI, "sender", sender)
	return &SubmitTradeResult{UTI: trade.UTI, TokenB64: trade.TokenB64}, nil
}

// AddComment appends a comment tagged with the caller's role.
func (s *Service) AddComment(ctx context.Context, slid string, in CommentInput) error {
	sender := requestcontext.Sender(ctx)
	ledger, err := s.mutableLedger(ctx, slid)
	if err != nil {
		return err
	}
	user, err := s.senderUser(ctx)
	if err != nil {
		return err
	}
	trade, err := s.tradeInLedger(ctx, ledger, in.UTI)
	if err != nil {
		return err
	}
	if err := bearerCheck(trade, in.TokenB64); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	role := user.RoleFor(slid)
	if in.Public {
		trade.AddPublicComment(sender, role, now, in.Metadata)
	} else {
		trade.AddPrivateComment(sender, role, now, in.Metadata)
	}
	return s.repo.SaveTrade(ctx, trade)
}

// RecordExactMatch evaluates and, on success, records a literal match.
func (s *Service) RecordExactMatch(ctx context.Context, slid string, in ExactMatchInput) (bool, error) {
	return s.recordMatch(ctx, slid, "exact", in.UTI, in.TokenB64, in.Key,
		func(info domain.TradeInfo) (bool, string) {
			return matching.Exact(info, in.Key, in.Value), in.Value
		})
}

// RecordBoundaryMatch evaluates and, on success, records a strict-range match.
func (s *Service) RecordBoundaryMatch(ctx context.Context, slid string, in BoundaryMatchInput) (bool, error) {
	return s.recordMatch(ctx, slid, "boundary", in.UTI, in.TokenB64, in.Key,
		func(info domain.TradeInfo) (bool, string) {
			value := formatAmount(in.Min) + "< x <" + formatAmount(in.Max)
			return matching.Boundary(info, in.Key, in.Min, in.Max), value
		})
}

// RecordLevenshteinMatch evaluates and, on success, records a fuzzy match
// within the caller-supplied edit-distance bound.
func (s *Service) RecordLevenshteinMatch(ctx context.Context, slid string, in LevenshteinMatchInput) (bool, error) {
	return s.recordMatch(ctx, slid, "levenshtein", in.UTI, in.TokenB64, in.Key,
		func(info domain.TradeInfo) (bool, string) {
			distance := matching.Levenshtein(info, in.Key, in.Value)
			if distance == matching.LevenshteinUnsupported && s.matches.RejectUnsupportedKeys {
				return false, in.Value
			}
			// The sentinel distance passes every non-negative threshold, so
			// unsupported keys match under the default policy.
			return distance <= in.MaxDistance, in.Value
		})
}

func (s *Service) recordMatch(
	ctx context.Context,
	slid, kind, uti, tokenB64, key string,
	eval func(domain.TradeInfo) (bool, string),
) (bool, error) {
	sender := requestcontext.Sender(ctx)
	ledger, err := s.mutableLedger(ctx, slid)
	if err != nil {
		return false, err
	}
	user, err := s.senderUser(ctx)
	if err != nil {
		return false, err
	}
	role := user.RoleFor(slid)
	if !role.CanRecordMatch() {
		return false, dErrors.New(dErrors.CodeInvalidInput, "invalid role type")
	}
	trade, err := s.tradeInLedger(ctx, ledger, uti)
	if err != nil {
		return false, err
	}
	if err := bearerCheck(trade, tokenB64); err != nil {
		return false, err
	}

	matched, value := eval(trade.TradeCreation.Info)
	if !matched {
		if s.metrics != nil {
			s.metrics.MatchesRecorded.WithLabelValues(kind, "miss").Inc()
		}
		return false, nil
	}

	now := requestcontext.Now(ctx)
	if err := trade.AddMatchLog(role, sender, now, key, value); err != nil {
		return false, err
	}
	before := trade.Status
	trade.ProgressStatus(now)
	if err := s.repo.SaveTrade(ctx, trade); err != nil {
		return false, err
	}

	if s.metrics != nil {
		s.metrics.MatchesRecorded.WithLabelValues(kind, "hit").Inc()
		if trade.Status != before {
			s.metrics.StatusTransitions.WithLabelValues(trade.Status.String()).Inc()
		}
	}
	s.emit(ctx, audit.ActionMatchRecorded, trade.UTI)
	if trade.Status != before {
		s.logger.InfoContext(ctx, "trade status advanced",
			"slid", slid, "uti", trade.UTI, "from", before.String(), "to", trade.Status.String())
	}
	return true, nil
}

// ListVisibleTrades returns the identifications of all trades the caller's
// role may see, appending an audit entry on every trade inspected.
func (s *Service) ListVisibleTrades(ctx context.Context, slid string) ([]TradeIdentification, error) {
	sender := requestcontext.Sender(ctx)
	ledger, err := s.memberLedger(ctx, slid)
	if err != nil {
		return nil, err
	}
	user, err := s.senderUser(ctx)
	if err != nil {
		return nil, err
	}
	role := user.RoleFor(slid)
	now := requestcontext.Now(ctx)

	var visible []TradeIdentification
	for _, uti := range ledger.Trades {
		trade, err := s.repo.LoadTrade(ctx, uti)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		trade.AddAuditLog(sender, now)
		if err := s.repo.SaveTrade(ctx, trade); err != nil {
			return nil, err
		}
		if VisibleTo(*trade, role, sender) {
			visible = append(visible, TradeIdentification{UTI: trade.UTI, TokenB64: trade.TokenB64})
		}
	}
	return visible, nil
}

// TradeDetail returns one trade projected for the caller's role. Requires the
// bearer token; ownership is not checked, only role-based redaction applies.
func (s *Service) TradeDetail(ctx context.Context, slid, uti, tokenB64 string) (*domain.Trade, error) {
	sender := requestcontext.Sender(ctx)
	ledger, err := s.memberLedger(ctx, slid)
	if err != nil {
		return nil, err
	}
	user, err := s.senderUser(ctx)
	if err != nil {
		return nil, err
	}
	trade, err := s.tradeInLedger(ctx, ledger, uti)
	if err != nil {
		return nil, err
	}
	if err := bearerCheck(trade, tokenB64); err != nil {
		return nil, err
	}

	trade.AddAuditLog(sender, requestcontext.Now(ctx))
	if err := s.repo.SaveTrade(ctx, trade); err != nil {
		return nil, err
	}

	projected, err := Project(*trade, user.RoleFor(slid), s.policy)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.TradeReads.Inc()
	}
	s.emit(ctx, audit.ActionTradeRead, trade.UTI)
	return &projected, nil
}

// MultipleTradeDetail is the batch variant of TradeDetail; failures are
// reported per item so one bad token does not fail the whole read.
func (s *Service) MultipleTradeDetail(ctx context.Context, slid string, trades []TradeIdentification) []DetailResult {
	results := make([]DetailResult, 0, len(trades))
	for _, ident := range trades {
		detail, err := s.TradeDetail(ctx, slid, ident.UTI, ident.TokenB64)
		if err != nil {
			results = append(results, DetailResult{UTI: ident.UTI, Err: err.Error()})
			continue
		}
		results = append(results, DetailResult{UTI: ident.UTI, Trade: detail})
	}
	return results
}

// LedgerContent returns the ledger's lock state and every trade visible to
// the caller, projected for their role.
func (s *Service) LedgerContent(ctx context.Context, slid string) (*Content, error) {
	sender := requestcontext.Sender(ctx)
	ledger, err := s.memberLedger(ctx, slid)
	if err != nil {
		return nil, err
	}
	user, err := s.senderUser(ctx)
	if err != nil {
		return nil, err
	}
	role := user.RoleFor(slid)

	content := &Content{Locked: ledger.Locked}
	for _, uti := range ledger.Trades {
		trade, err := s.repo.LoadTrade(ctx, uti)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !VisibleTo(*trade, role, sender) {
			continue
		}
		projected, err := Project(*trade, role, s.policy)
		if err != nil {
			continue
		}
		content.Trades = append(content.Trades, projected)
	}
	return content, nil
}

// Enroll assigns a role on this ledger and adds membership. A second call for
// an existing member is a no-op even if the payload differs; the first
// assignment per ledger wins until reassigned through enrollment approval.
func (s *Service) Enroll(ctx context.Context, slid, userID string, role domain.RoleType, jurisdiction domain.JurisdictionType) error {
	ledger, err := s.loadLedger(ctx, slid)
	if err != nil {
		return err
	}
	if ledger.HasUser(userID) {
		return nil
	}

	user, err := s.repo.LoadUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return err
	}
	user.UpdateRole(domain.LedgerRole{SharedLedgerID: slid, Role: role, Jurisdiction: jurisdiction})
	if err := s.repo.SaveUser(ctx, user); err != nil {
		return err
	}

	ledger.AddUser(userID)
	if err := s.repo.SaveLedger(ctx, ledger); err != nil {
		return err
	}
	s.emit(ctx, audit.ActionUserEnrolled, userID)
	return nil
}

// RemoveTrade deletes a trade from the ledger. Admin only.
func (s *Service) RemoveTrade(ctx context.Context, slid, uti string) error {
	ledger, err := s.mutableLedger(ctx, slid)
	if err != nil {
		return err
	}
	user, err := s.senderUser(ctx)
	if err != nil {
		return err
	}
	if !user.IsAdmin(slid) {
		return dErrors.New(dErrors.CodeUnauthorized, "not authorized to remove trades on this shared ledger")
	}
	if !ledger.RemoveTrade(uti) {
		return dErrors.Newf(dErrors.CodeNotFound, "trade %s does not exist in this shared ledger", uti)
	}
	if err := s.repo.DeleteTrade(ctx, uti); err != nil {
		return err
	}
	if err := s.repo.SaveLedger(ctx, ledger); err != nil {
		return err
	}
	s.emit(ctx, audit.ActionTradeRemoved, uti)
	return nil
}

// Lock sets the one-way lock. Trade-mutating operations are rejected at the
// service entry points from then on; reads keep working.
func (s *Service) Lock(ctx context.Context, slid string) error {
	ledger, err := s.memberLedger(ctx, slid)
	if err != nil {
		return err
	}
	if ledger.Locked {
		return nil
	}
	ledger.Locked = true
	if err := s.repo.SaveLedger(ctx, ledger); err != nil {
		return err
	}
	s.emit(ctx, audit.ActionLedgerLocked, slid)
	return nil
}

// DeleteLedger cascades: member trades first, then member users, then the
// ledger record and its registry entry. Admin only. Records already gone are
// skipped, so a partially completed delete can be re-run.
func (s *Service) DeleteLedger(ctx context.Context, slid string) error {
	ledger, err := s.memberLedger(ctx, slid)
	if err != nil {
		return err
	}
	user, err := s.senderUser(ctx)
	if err != nil {
		return err
	}
	if !user.IsAdmin(slid) {
		return dErrors.New(dErrors.CodeUnauthorized, "not authorized to delete this shared ledger")
	}
	if err := s.deleteCascade(ctx, ledger); err != nil {
		return err
	}

	registry, err := s.repo.LoadLedgerRegistry(ctx)
	if err != nil {
		return err
	}
	kept := registry[:0]
	for _, id := range registry {
		if id != slid {
			kept = append(kept, id)
		}
	}
	if err := s.repo.SaveLedgerRegistry(ctx, kept); err != nil {
		return err
	}
	s.emit(ctx, audit.ActionLedgerDeleted, slid)
	return nil
}

// DeleteAllLedgers cascades over every registered ledger. Used by the full
// reset flow; callers gate permissions.
func (s *Service) DeleteAllLedgers(ctx context.Context) error {
	registry, err := s.repo.LoadLedgerRegistry(ctx)
	if err != nil {
		return err
	}
	for _, slid := range registry {
		ledger, err := s.repo.LoadLedger(ctx, slid)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return err
		}
		if err := s.deleteCascade(ctx, ledger); err != nil {
			return err
		}
	}
	return s.repo.SaveLedgerRegistry(ctx, nil)
}

func (s *Service) deleteCascade(ctx context.Context, ledger *domain.SharedLedger) error {
	for _, uti := range ledger.Trades {
		if err := s.repo.DeleteTrade(ctx, uti); err != nil {
			return err
		}
	}
	for _, userID := range ledger.Users {
		if err := s.repo.DeleteUser(ctx, userID); err != nil {
			return err
		}
	}
	return s.repo.DeleteLedger(ctx, ledger.ID)
}

// VerifyTradeToken runs the full cryptographic verification against the
// ledger's public key. It exists for holders that received a token across a
// trust boundary; in-ledger operations use the plain bearer check.
func (s *Service) VerifyTradeToken(ctx context.Context, uti, tokenB64 string) error {
	pub, err := s.signer.PublicKey(ctx)
	if err != nil {
		return err
	}
	return token.Verify(pub, uti, tokenB64)
}

func (s *Service) loadLedger(ctx context.Context, slid string) (*domain.SharedLedger, error) {
	ledger, err := s.repo.LoadLedger(ctx, slid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "shared ledger %s does not exist", slid)
		}
		return nil, err
	}
	return ledger, nil
}

func (s *Service) memberLedger(ctx context.Context, slid string) (*domain.SharedLedger, error) {
	ledger, err := s.loadLedger(ctx, slid)
	if err != nil {
		return nil, err
	}
	if !ledger.HasUser(requestcontext.Sender(ctx)) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not a member of this shared ledger")
	}
	return ledger, nil
}

func (s *Service) mutableLedger(ctx context.Context, slid string) (*domain.SharedLedger, error) {
	ledger, err := s.memberLedger(ctx, slid)
	if err != nil {
		return nil, err
	}
	if ledger.Locked {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "shared ledger %s is locked", slid)
	}
	return ledger, nil
}

func (s *Service) senderUser(ctx context.Context) (*domain.User, error) {
	user, err := s.repo.LoadUser(ctx, requestcontext.Sender(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) tradeInLedger(ctx context.Context, ledger *domain.SharedLedger, uti string) (*domain.Trade, error) {
	if !ledger.HasTrade(uti) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "trade %s does not exist in this shared ledger", uti)
	}
	trade, err := s.repo.LoadTrade(ctx, uti)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "trade %s does not exist", uti)
		}
		return nil, err
	}
	return trade, nil
}

func bearerCheck(trade *domain.Trade, tokenB64 string) error {
	if tokenB64 != trade.TokenB64 {
		return dErrors.New(dErrors.CodeUnauthorized, "trade token does not match")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, action, entity string) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Actor:     requestcontext.Sender(ctx),
		Action:    action,
		Entity:    entity,
		Timestamp: requestcontext.Now(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err.Error())
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
