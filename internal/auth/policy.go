package auth

// OwnershipPolicy decides whether a caller may mutate a resource, given the
// resource's owner and the caller's identity and role. A policy is plain
// data — an allow-list of privileged roles — so each endpoint binds its own
// instance instead of subclassing a validator.
type OwnershipPolicy struct {
	// PrivilegedRoles may mutate resources they do not own.
	PrivilegedRoles []Role
}

// Allows returns true if the caller owns the resource or holds one of the
// policy's privileged roles.
func (p OwnershipPolicy) Allows(callerID string, callerRole Role, ownerID string) bool {
	if callerID != "" && callerID == ownerID {
		return true
	}
	for _, r := range p.PrivilegedRoles {
		if callerRole == r {
			return true
		}
	}
	return false
}

// The delete/update asymmetry below is intentional and must stay
// per-operation: developers may delete any track, but renames remain
// owner-only.
var (
	// DeletePolicy governs track deletion: owner or developer.
	DeletePolicy = OwnershipPolicy{PrivilegedRoles: []Role{RoleDeveloper}}

	// UpdatePolicy governs track updates: owner only, no override.
	UpdatePolicy = OwnershipPolicy{}
)
