package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Role is an authority tag attached to a principal. Membership in a
// principal's authority set is the only representation of permission.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

var knownRoles = []Role{RoleUser, RoleAdmin}

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range knownRoles {
		if r == known {
			return r, nil
		}
	}
	return "", NewValidationFailure(fmt.Sprintf("unknown role %q", s))
}

// RoleSet is an unordered set of unique roles.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// RoleSetFromStrings drops values that are not known roles.
func RoleSetFromStrings(values []string) RoleSet {
	s := make(RoleSet, len(values))
	for _, v := range values {
		if r, err := ParseRole(v); err == nil {
			s[r] = struct{}{}
		}
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Add reports whether the set changed.
func (s RoleSet) Add(r Role) bool {
	if s.Has(r) {
		return false
	}
	s[r] = struct{}{}
	return true
}

// Remove reports whether the set changed. Removing an absent role is a no-op.
func (s RoleSet) Remove(r Role) bool {
	if !s.Has(r) {
		return false
	}
	delete(s, r)
	return true
}

func (s RoleSet) Clone() RoleSet {
	out := make(RoleSet, len(s))
	for r := range s {
		out[r] = struct{}{}
	}
	return out
}

// Sorted returns the roles in a stable order for tokens, JSON and SQL arrays.
func (s RoleSet) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s RoleSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, r := range sorted {
		out[i] = string(r)
	}
	return out
}

func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// AccountKind discriminates user principals from admin principals.
type AccountKind string

const (
	KindUser  AccountKind = "user"
	KindAdmin AccountKind = "admin"
)

// DefaultAuthorities returns the authorities a new principal of this kind starts with.
func (k AccountKind) DefaultAuthorities() RoleSet {
	if k == KindAdmin {
		return NewRoleSet(RoleUser, RoleAdmin)
	}
	return NewRoleSet(RoleUser)
}

// Principal is an authenticable account as stored by the AccountStore.
type Principal struct {
	ID           int64
	Username     string
	PasswordHash string
	Authorities  RoleSet
	Kind         AccountKind
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Authorities.Has(RoleAdmin)
}

// Summary strips credentials for listing endpoints.
func (p *Principal) Summary() AccountSummary {
	return AccountSummary{
		ID:          p.ID,
		Username:    p.Username,
		Kind:        p.Kind,
		Authorities: p.Authorities.Clone(),
		CreatedAt:   p.CreatedAt,
	}
}

// AccountSummary is a projection for account listing (no password hash).
type AccountSummary struct {
	ID          int64       `json:"id"`
	Username    string      `json:"username"`
	Kind        AccountKind `json:"kind"`
	Authorities RoleSet     `json:"authorities"`
	CreatedAt   time.Time   `json:"createdAt"`
}
