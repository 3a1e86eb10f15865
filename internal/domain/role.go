package domain

import (
	"fmt"
	"strings"

	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
)

// Role — закрытый набор ролей оператора. Каждая роль сама отвечает на вопросы о своих возможностях.
type Role interface {
	Name() string
	// CanDispense — может ли роль оформлять выдачу.
	CanDispense() bool
	// CanPrint — может ли роль отправлять документы на печать.
	CanPrint() bool
	// Dashboard — стартовый экран роли.
	Dashboard() string
	role()
}

type pharmacistRole struct{}

func (pharmacistRole) Name() string      { return "pharmacist" }
func (pharmacistRole) CanDispense() bool { return true }
func (pharmacistRole) CanPrint() bool    { return true }
func (pharmacistRole) Dashboard() string { return "dispensing" }
func (pharmacistRole) role()             {}

type cashierRole struct{}

func (cashierRole) Name() string      { return "cashier" }
func (cashierRole) CanDispense() bool { return true }
func (cashierRole) CanPrint() bool    { return true }
func (cashierRole) Dashboard() string { return "counter" }
func (cashierRole) role()             {}

type viewerRole struct{}

func (viewerRole) Name() string      { return "viewer" }
func (viewerRole) CanDispense() bool { return false }
func (viewerRole) CanPrint() bool    { return true }
func (viewerRole) Dashboard() string { return "reports" }
func (viewerRole) role()             {}

var (
	RolePharmacist Role = pharmacistRole{}
	RoleCashier    Role = cashierRole{}
	RoleViewer     Role = viewerRole{}
)

// ParseRole сопоставляет строку с ролью.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pharmacist":
		return RolePharmacist, nil
	case "cashier":
		return RoleCashier, nil
	case "viewer":
		return RoleViewer, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", e.ErrStatusBadRequest, s)
	}
}

// Operator — личность оператора, переданная извне.
type Operator struct {
	ID   string
	Role Role
}
