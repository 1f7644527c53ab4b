package goSession

// HasPermission reports whether the user holds p or the wildcard
// permission. False without a user.
func (m *Manager) HasPermission(p string) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.user != nil && m.st.perms.Has(p)
}

// HasAnyPermission reports whether at least one of perms is held.
func (m *Manager) HasAnyPermission(perms ...string) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.user != nil && m.st.perms.HasAny(perms)
}

// HasAllPermissions reports whether every one of perms is held. False
// without a user, even for an empty list.
func (m *Manager) HasAllPermissions(perms ...string) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.user != nil && m.st.perms.HasAll(perms)
}

// HasRole compares name with the user's role name.
func (m *Manager) HasRole(name string) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.user != nil && m.st.user.Role.Name == name
}

// HasUserType compares t with the user's type.
func (m *Manager) HasUserType(t string) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.user != nil && m.st.user.UserType == t
}

// CanAccessDashboard reports whether the access level is FULL or LIMITED.
func (m *Manager) CanAccessDashboard() bool {
	level := m.accessLevel()
	return level == AccessFull || level == AccessLimited
}

// CanAccessFullFeatures reports whether the access level is FULL.
func (m *Manager) CanAccessFullFeatures() bool {
	return m.accessLevel() == AccessFull
}

// NeedsProfileCompletion reports PROFILE_ONLY access or an INACTIVE account.
func (m *Manager) NeedsProfileCompletion() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.accessLevel == AccessProfileOnly || m.st.accountStatus == AccountInactive
}

// NeedsValidation reports an account waiting on identity validation.
func (m *Manager) NeedsValidation() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.accountStatus == AccountPendingValidation && m.st.validationStatus == ValidationPending
}

// IsAccountBlocked reports NO_ACCESS or a PENDING, REJECTED or SUSPENDED
// account.
func (m *Manager) IsAccountBlocked() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.accessLevel == AccessNone || m.st.accountStatus.Blocked()
}

func (m *Manager) accessLevel() AccessLevel {
	if m == nil {
		return ""
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.accessLevel
}
