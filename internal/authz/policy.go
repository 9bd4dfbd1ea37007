package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
)

//go:embed model.conf
var modelText string

type Resource string

const (
	ResourceClient   Resource = "client"
	ResourceInvoice  Resource = "invoice"
	ResourcePayment  Resource = "payment"
	ResourceTask     Resource = "task"
	ResourceUser     Resource = "user"
	ResourceReport   Resource = "report"
	ResourceAuditLog Resource = "audit_log"
)

type Action string

const (
	ActionRead       Action = "read"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionTransition Action = "transition"
	// ActionAssign is creating or reassigning work for someone other than self.
	ActionAssign          Action = "assign"
	ActionAnalytics       Action = "analytics"
	ActionTeamPerformance Action = "team_performance"
)

type permission struct {
	resource Resource
	actions  []Action
	roles    []models.Role
}

var (
	everyone   = models.Roles
	management = []models.Role{models.RoleAdmin, models.RoleDirector}
	billing    = []models.Role{models.RoleAdmin, models.RoleDirector, models.RoleFinance}
	leads      = []models.Role{models.RoleAdmin, models.RoleDirector, models.RoleTeamLeader}
)

// permissions is the single role × resource × action table.
var permissions = []permission{
	{ResourceClient, []Action{ActionRead, ActionUpdate}, everyone},
	{ResourceClient, []Action{ActionCreate}, []models.Role{models.RoleAdmin, models.RoleDirector, models.RoleFinance, models.RoleTeamLeader}},
	{ResourceClient, []Action{ActionDelete}, billing},

	{ResourceInvoice, []Action{ActionRead}, everyone},
	{ResourceInvoice, []Action{ActionCreate, ActionUpdate, ActionDelete, ActionTransition}, billing},

	{ResourcePayment, []Action{ActionRead, ActionCreate}, billing},

	{ResourceTask, []Action{ActionRead, ActionCreate, ActionUpdate}, everyone},
	{ResourceTask, []Action{ActionAssign, ActionDelete}, leads},

	{ResourceUser, []Action{ActionRead}, everyone},
	{ResourceUser, []Action{ActionCreate, ActionUpdate, ActionDelete}, []models.Role{models.RoleAdmin}},

	{ResourceReport, []Action{ActionRead}, everyone},
	{ResourceReport, []Action{ActionAnalytics}, billing},
	{ResourceReport, []Action{ActionTeamPerformance}, leads},

	{ResourceAuditLog, []Action{ActionRead}, management},
}

// Decision is the outcome of a successful authorization: the rows the caller
// may touch.
type Decision struct {
	Scope Scope
}

// Policy answers (identity, resource, action) questions. It never reads the
// store; the returned scope is applied by repositories.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authorization model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	rules := make([][]string, 0, 64)
	for _, p := range permissions {
		for _, role := range p.roles {
			for _, act := range p.actions {
				rules = append(rules, []string{string(role), string(p.resource), string(act)})
			}
		}
	}
	if _, err := enforcer.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	return &Policy{enforcer: enforcer}, nil
}

// MustNewPolicy is NewPolicy for wiring code and tests; the permission table
// is static so a failure is a programming error.
func MustNewPolicy() *Policy {
	p, err := NewPolicy()
	if err != nil {
		panic(err)
	}
	return p
}

// Can reports whether role may perform act on res at all.
func (p *Policy) Can(role models.Role, res Resource, act Action) bool {
	if !role.Valid() {
		return false
	}
	ok, err := p.enforcer.Enforce(string(role), string(res), string(act))
	return err == nil && ok
}

// Authorize returns the caller's row scope for res, Unauthenticated when there
// is no identity and Forbidden when the role may not perform act on res.
func (p *Policy) Authorize(id *auth.Identity, res Resource, act Action) (Decision, error) {
	if id == nil || id.ID == 0 {
		return Decision{}, apperrors.Unauthenticated("")
	}
	if !p.Can(id.Role, res, act) {
		return Decision{}, apperrors.Forbidden(fmt.Sprintf("Role %s may not %s %s", id.Role, act, res))
	}
	return Decision{Scope: ScopeFor(id.Role, res, id.ID)}, nil
}
