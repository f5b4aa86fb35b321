// Package guard runs the authorization pipeline in front of every inbound
// operation: payload screening, origin block check, identity verification
// (account lock and credentials for login, session token otherwise), role
// permissions and attribute policies. The first failing stage wins and its
// Denial is returned.
package guard

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/server/abac"
	"github.com/dmitrijs2005/refinery/internal/server/auth"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/dmitrijs2005/refinery/internal/server/rbac"
	"github.com/dmitrijs2005/refinery/internal/server/services"
	"github.com/dmitrijs2005/refinery/internal/server/threat"
	"github.com/dmitrijs2005/refinery/internal/timex"
)

// Ledger is the protection ledger as seen by the pipeline.
type Ledger interface {
	IsBlocked(ctx context.Context, origin string) (bool, error)
	IsLocked(ctx context.Context, identity string) (bool, error)
	RecordFailure(ctx context.Context, origin, identity string) (services.FailureOutcome, error)
	Block(ctx context.Context, actor services.Actor, spec services.BlockSpec) (*models.BlockedOrigin, error)
	Settings() services.LedgerSettings
}

type Auditor interface {
	Record(ctx context.Context, e *models.SecurityEvent) error
}

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type Tokens interface {
	Issue(user *models.User) (string, *auth.Claims, error)
	Verify(token string) (*auth.Claims, error)
}

// Request is an authenticated operation. An empty Permission only requires a
// valid session.
type Request struct {
	Origin     string
	Token      string
	Permission string
	Payload    map[string]any
}

// LoginRequest carries credentials. Payload holds any further body fields;
// username and password are screened together with it.
type LoginRequest struct {
	Origin   string
	Username string
	Password string
	Payload  map[string]any
}

type LoginResult struct {
	Token  string
	Claims *auth.Claims
	User   *models.User
}

type Pipeline struct {
	scanner  *threat.Scanner
	ledger   Ledger
	users    Authenticator
	tokens   Tokens
	catalog  *rbac.Catalog
	policies *abac.Evaluator
	audit    Auditor
	clock    timex.Clock
	failOpen bool
	log      logging.Logger
}

type Deps struct {
	Scanner  *threat.Scanner
	Ledger   Ledger
	Users    Authenticator
	Tokens   Tokens
	Catalog  *rbac.Catalog
	Policies *abac.Evaluator
	Audit    Auditor
	Clock    timex.Clock
	// FailOpen treats ledger store errors as "not blocked / not locked".
	// When false such errors deny with 503.
	FailOpen bool
	Log      logging.Logger
}

func New(d Deps) *Pipeline {
	if d.Clock == nil {
		d.Clock = timex.SystemClock{}
	}
	if d.Policies == nil {
		d.Policies = abac.NewEvaluator()
	}
	return &Pipeline{
		scanner:  d.Scanner,
		ledger:   d.Ledger,
		users:    d.Users,
		tokens:   d.Tokens,
		catalog:  d.Catalog,
		policies: d.Policies,
		audit:    d.Audit,
		clock:    d.Clock,
		failOpen: d.FailOpen,
		log:      d.Log.With("module", "guard"),
	}
}

// Admit screens the payload and checks the origin block. It is the whole
// pipeline for public operations.
func (p *Pipeline) Admit(ctx context.Context, origin string, payload map[string]any) error {
	if err := p.screen(ctx, origin, nil, payload); err != nil {
		return err
	}
	return p.checkOrigin(ctx, origin, nil)
}

// Login authenticates credentials and issues a session token.
func (p *Pipeline) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	payload := make(map[string]any, len(req.Payload)+2)
	for k, v := range req.Payload {
		payload[k] = v
	}
	payload["username"] = req.Username
	payload["password"] = req.Password

	identity := optional(req.Username)

	if err := p.screen(ctx, req.Origin, identity, payload); err != nil {
		return nil, err
	}
	if err := p.checkOrigin(ctx, req.Origin, identity); err != nil {
		return nil, err
	}
	if req.Username != "" {
		if err := p.checkAccount(ctx, req.Origin, req.Username); err != nil {
			return nil, err
		}
	}

	user, err := p.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, common.ErrBadCredentials) {
			p.log.Error(ctx, "credential check failed", "error", err)
			return nil, deny(http.StatusInternalServerError, MsgInternal, common.ErrorInternal)
		}
		p.loginFailed(ctx, req.Origin, req.Username)
		return nil, deny(http.StatusUnauthorized, MsgBadCredentials, common.ErrBadCredentials)
	}

	token, claims, err := p.tokens.Issue(user)
	if err != nil {
		p.log.Error(ctx, "token issue failed", "error", err)
		return nil, deny(http.StatusInternalServerError, MsgInternal, common.ErrorInternal)
	}

	p.record(ctx, req.Origin, &user.UserName, models.EventLoginSuccess, models.SeverityLow,
		fmt.Sprintf("login succeeded, role %s", user.Role))

	return &LoginResult{Token: token, Claims: claims, User: user}, nil
}

// Authorize verifies the session token and checks req.Permission.
func (p *Pipeline) Authorize(ctx context.Context, req Request) (*auth.Claims, error) {
	if err := p.screen(ctx, req.Origin, nil, req.Payload); err != nil {
		return nil, err
	}
	if err := p.checkOrigin(ctx, req.Origin, nil); err != nil {
		return nil, err
	}

	claims, err := p.verify(ctx, req.Origin, req.Token)
	if err != nil {
		return nil, err
	}

	if req.Permission != "" {
		if err := p.Check(ctx, req.Origin, claims, req.Permission); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

// Check runs the role permission and attribute policy stages for claims that
// were already verified. Admin passes both.
func (p *Pipeline) Check(ctx context.Context, origin string, claims *auth.Claims, permission string) error {
	if claims == nil {
		return deny(http.StatusUnauthorized, MsgAuthRequired, common.ErrMissingToken)
	}
	if claims.Role == rbac.AdminRole {
		return nil
	}

	if !p.catalog.Known(claims.Role) {
		p.log.Warn(ctx, "unknown role in session", "username", claims.Username, "role", claims.Role)
		return deny(http.StatusForbidden, MsgInsufficient, common.ErrUnknownRole)
	}
	if !p.catalog.HasPermission(claims.Role, permission) {
		p.log.Debug(ctx, "permission denied", "username", claims.Username, "role", claims.Role, "permission", permission)
		return deny(http.StatusForbidden, MsgInsufficient, common.ErrPermissionDenied)
	}

	decision := p.policies.Evaluate(claims.Role, abac.Context{Now: p.clock.Now()})
	if !decision.Allowed {
		p.record(ctx, origin, &claims.Username, models.EventContextDenied, models.SeverityMedium,
			fmt.Sprintf("%s denied by policy for role %s: %s", permission, claims.Role, decision.Reason))
		return deny(http.StatusForbidden, decision.Reason, common.ErrContextDenied)
	}
	return nil
}

func (p *Pipeline) screen(ctx context.Context, origin string, identity *string, payload map[string]any) error {
	if len(payload) == 0 {
		return nil
	}
	m, found := p.scanner.ScanFields(payload)
	if !found {
		return nil
	}

	p.record(ctx, origin, identity, models.EventInjectionAttempt, models.SeverityCritical,
		fmt.Sprintf("%s signature in field %q", m.Category, m.Field))

	_, err := p.ledger.Block(ctx, services.SystemActorAt(origin), services.BlockSpec{
		Origin:   origin,
		Reason:   services.ReasonInjectionBlock,
		Duration: p.ledger.Settings().AttackBlock,
	})
	if err != nil {
		p.log.Error(ctx, "failed to block attacking origin", "origin", origin, "error", err)
	}

	return deny(http.StatusForbidden, MsgSecurityCheck, common.ErrInjectionSignature)
}

func (p *Pipeline) checkOrigin(ctx context.Context, origin string, identity *string) error {
	blocked, err := p.ledger.IsBlocked(ctx, origin)
	if err != nil {
		if d := p.unavailable(ctx, err); d != nil {
			return d
		}
		return nil
	}
	if !blocked {
		return nil
	}

	p.record(ctx, origin, identity, models.EventBlockedOriginAccess, models.SeverityMedium,
		"request from blocked origin")
	return deny(http.StatusForbidden, MsgOriginBlocked, common.ErrOriginBlocked)
}

func (p *Pipeline) checkAccount(ctx context.Context, origin, username string) error {
	locked, err := p.ledger.IsLocked(ctx, username)
	if err != nil {
		if d := p.unavailable(ctx, err); d != nil {
			return d
		}
		return nil
	}
	if !locked {
		return nil
	}

	p.record(ctx, origin, &username, models.EventLockedAccountAccess, models.SeverityMedium,
		"login attempt on locked account")
	return deny(http.StatusLocked, MsgAccountLocked, common.ErrAccountLocked)
}

// unavailable returns nil when failing open.
func (p *Pipeline) unavailable(ctx context.Context, err error) *Denial {
	if p.failOpen {
		p.log.Warn(ctx, "ledger unavailable, failing open", "error", err)
		return nil
	}
	p.log.Error(ctx, "ledger unavailable, failing closed", "error", err)
	return deny(http.StatusServiceUnavailable, MsgUnavailable, common.ErrLedgerUnavailable)
}

func (p *Pipeline) loginFailed(ctx context.Context, origin, username string) {
	p.record(ctx, origin, optional(username), models.EventLoginFailed, models.SeverityLow,
		"invalid username or password")

	out, err := p.ledger.RecordFailure(ctx, origin, username)
	if err != nil {
		p.log.Error(ctx, "failed to record failed attempt", "origin", origin, "error", err)
		return
	}
	if out.OriginBlocked || out.AccountLocked {
		p.log.Info(ctx, "brute force escalation", "origin", origin, "username", username,
			"origin_blocked", out.OriginBlocked, "account_locked", out.AccountLocked)
	}
}

func (p *Pipeline) verify(ctx context.Context, origin, token string) (*auth.Claims, error) {
	claims, err := p.tokens.Verify(token)
	if err == nil {
		return claims, nil
	}

	var (
		d   *Denial
		sev = models.SeverityLow
	)
	switch {
	case errors.Is(err, common.ErrMissingToken):
		d = deny(http.StatusUnauthorized, MsgAuthRequired, common.ErrMissingToken)
	case errors.Is(err, common.ErrTokenExpired):
		d = deny(http.StatusUnauthorized, MsgSessionExpired, common.ErrTokenExpired)
	case errors.Is(err, common.ErrInvalidSignature):
		d = deny(http.StatusForbidden, MsgInvalidToken, common.ErrInvalidSignature)
		sev = models.SeverityHigh
	default:
		d = deny(http.StatusUnauthorized, MsgInvalidToken, common.ErrTokenMalformed)
		sev = models.SeverityMedium
	}

	p.record(ctx, origin, nil, models.EventTokenRejected, sev, fmt.Sprintf("token rejected: %v", err))
	return nil, d
}

func (p *Pipeline) record(ctx context.Context, origin string, identity *string, kind models.EventKind, sev models.Severity, desc string) {
	if p.audit == nil {
		return
	}
	err := p.audit.Record(ctx, &models.SecurityEvent{
		Origin:      origin,
		Identity:    identity,
		Kind:        kind,
		Severity:    sev,
		Description: desc,
	})
	if err != nil {
		p.log.Error(ctx, "failed to record security event", "kind", kind, "error", err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
