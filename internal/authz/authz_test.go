package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		allowDisabled bool
		want          Mode
		wantErr       bool
	}{
		{name: "default", raw: "", want: ModeEnforce},
		{name: "shadow", raw: " Shadow ", want: ModeShadow},
		{name: "disabled outside development", raw: "disabled", wantErr: true},
		{name: "disabled in development", raw: "disabled", allowDisabled: true, want: ModeDisabled},
		{name: "invalid", raw: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.raw, tt.allowDisabled)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	a, err := NewAuthorizer("", ModeEnforce)
	require.NoError(t, err)

	tests := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{role: "admin", object: ObjStudents, action: ActWrite, want: true},
		{role: "admin", object: ObjReconcile, action: ActWrite, want: true},
		{role: "moderator", object: ObjStudents, action: ActRead, want: true},
		{role: "moderator", object: ObjWaitlist, action: ActWrite, want: true},
		{role: "moderator", object: ObjExports, action: ActRead, want: true},
		{role: "moderator", object: ObjStudents, action: ActWrite, want: false},
		{role: "moderator", object: ObjPayments, action: ActWrite, want: false},
		{role: "moderator", object: ObjReconcile, action: ActWrite, want: false},
		{role: "", object: ObjStudents, action: ActRead, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.object+"/"+tt.action, func(t *testing.T) {
			allowed, enforced, err := a.Authorize(tt.role, tt.object, tt.action)
			require.NoError(t, err)
			assert.True(t, enforced)
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestPolicyFile(t *testing.T) {
	policy := filepath.Join(t.TempDir(), "policy.csv")
	require.NoError(t, os.WriteFile(policy, []byte("p, role:moderator, payments, write\n"), 0o644))

	a, err := NewAuthorizer(policy, ModeEnforce)
	require.NoError(t, err)

	allowed, _, err := a.Authorize("moderator", ObjPayments, ActWrite)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = a.Authorize("moderator", ObjStudents, ActRead)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestShadowAndDisabledDoNotEnforce(t *testing.T) {
	shadow, err := NewAuthorizer("", ModeShadow)
	require.NoError(t, err)
	allowed, enforced, err := shadow.Authorize("moderator", ObjReconcile, ActWrite)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.False(t, enforced)

	disabled, err := NewAuthorizer("", ModeDisabled)
	require.NoError(t, err)
	allowed, enforced, err = disabled.Authorize("", ObjReconcile, ActWrite)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.False(t, enforced)
}
