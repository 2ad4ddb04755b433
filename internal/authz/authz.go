package authz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

type Mode string

const (
	ModeEnforce  Mode = "enforce"
	ModeShadow   Mode = "shadow"
	ModeDisabled Mode = "disabled"
)

// Objects and actions checked by the HTTP layer.
const (
	ObjStudents    = "students"
	ObjPayments    = "payments"
	ObjSections    = "sections"
	ObjEnrollments = "enrollments"
	ObjWaitlist    = "waitlist"
	ObjContact     = "contact"
	ObjExports     = "exports"
	ObjReconcile   = "reconcile"
	ObjPrices      = "prices"
	ObjAccount     = "account"

	ActRead  = "read"
	ActWrite = "write"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// defaultPolicy applies when no policy file is configured. Admins inherit every
// moderator grant.
var defaultPolicy = [][]string{
	{"role:admin", "*", "*"},
	{"role:moderator", ObjAccount, ActRead},
	{"role:moderator", ObjStudents, ActRead},
	{"role:moderator", ObjSections, ActRead},
	{"role:moderator", ObjWaitlist, ActRead},
	{"role:moderator", ObjWaitlist, ActWrite},
	{"role:moderator", ObjContact, ActRead},
	{"role:moderator", ObjExports, ActRead},
	{"role:moderator", ObjPrices, ActRead},
}

var defaultGrouping = [][]string{
	{"role:admin", "role:moderator"},
}

// ParseMode reads AUTHZ_MODE. Empty means enforce. Disabled is only accepted when
// allowDisabled is set, which the server does for development.
func ParseMode(raw string, allowDisabled bool) (Mode, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ModeEnforce, nil
	}
	switch Mode(raw) {
	case ModeEnforce, ModeShadow:
		return Mode(raw), nil
	case ModeDisabled:
		if !allowDisabled {
			return "", errors.New("authz: AUTHZ_MODE=disabled is only allowed in development")
		}
		return ModeDisabled, nil
	default:
		return "", errors.New("authz: invalid AUTHZ_MODE (expected enforce|shadow|disabled)")
	}
}

type Authorizer struct {
	enforcer *casbin.Enforcer
	mode     Mode
}

// NewAuthorizer loads policy from policyPath (casbin CSV) or, when empty, from the
// built-in defaults.
func NewAuthorizer(policyPath string, mode Mode) (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz: invalid model: %w", err)
	}

	if policyPath != "" {
		enforcer, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
		if err != nil {
			return nil, fmt.Errorf("authz: failed to load policy %s: %w", policyPath, err)
		}
		return &Authorizer{enforcer: enforcer, mode: mode}, nil
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if _, err := enforcer.AddPolicies(defaultPolicy); err != nil {
		return nil, err
	}
	if _, err := enforcer.AddGroupingPolicies(defaultGrouping); err != nil {
		return nil, err
	}
	return &Authorizer{enforcer: enforcer, mode: mode}, nil
}

func (a *Authorizer) Mode() Mode {
	return a.mode
}

func SubjectFromRole(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = "anonymous"
	}
	return "role:" + role
}

// Authorize reports whether role may perform action on object. enforced is false in
// shadow and disabled modes, where callers should let the request through.
func (a *Authorizer) Authorize(role, object, action string) (allowed bool, enforced bool, err error) {
	switch a.mode {
	case ModeDisabled:
		return true, false, nil
	case ModeShadow:
		ok, err := a.enforcer.Enforce(SubjectFromRole(role), object, action)
		if err != nil {
			return false, false, err
		}
		return ok, false, nil
	case ModeEnforce:
		ok, err := a.enforcer.Enforce(SubjectFromRole(role), object, action)
		if err != nil {
			return false, true, err
		}
		return ok, true, nil
	default:
		return false, false, errors.New("authz: unknown mode")
	}
}
