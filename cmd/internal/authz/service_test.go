package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"authkit/cmd/authz/privilege"
	"authkit/cmd/internal/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exp = time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService(NewMemoryStore(), opts...)
	require.NoError(t, err)
	return svc
}

func grant(t *testing.T, svc *Service, userID int64, s string) {
	t.Helper()
	ok, err := svc.Grant(context.Background(), userID, privilege.MustDecode(s))
	require.NoError(t, err)
	require.True(t, ok, s)
}

func has(t *testing.T, svc *Service, userID int64, required string, expireBefore *time.Time) bool {
	t.Helper()
	ok, err := svc.HasPrivilege(context.Background(), userID, privilege.MustDecode(required), expireBefore)
	require.NoError(t, err)
	return ok
}

func TestHasPrivilege_Wildcards(t *testing.T) {
	svc := newService(t)
	grant(t, svc, 1, "read:article")
	grant(t, svc, 1, "edit:comment@1")
	grant(t, svc, 2, ":")

	assert.True(t, has(t, svc, 1, "read:article", nil))
	assert.True(t, has(t, svc, 1, "read:article@42", nil))
	assert.True(t, has(t, svc, 1, "edit:comment@1", nil))
	assert.False(t, has(t, svc, 1, "edit:comment@2", nil))
	assert.False(t, has(t, svc, 1, "edit:comment", nil))
	assert.False(t, has(t, svc, 1, "delete:article", nil))

	assert.True(t, has(t, svc, 2, "delete:user@5", nil))
	assert.False(t, has(t, svc, 3, "read:article", nil))
}

func TestHasPrivilege_Expiry(t *testing.T) {
	svc := newService(t)
	grant(t, svc, 1, "read:articleT"+exp.Format(time.RFC3339))
	grant(t, svc, 2, "read:article")

	before := exp.Add(-time.Hour).Format(time.RFC3339)
	assert.False(t, has(t, svc, 1, "read:article", nil), "expiring grant cannot cover a permanent requirement")
	assert.True(t, has(t, svc, 1, "read:articleT"+before, nil))
	assert.False(t, has(t, svc, 1, "read:articleT"+exp.Format(time.RFC3339), nil))

	assert.True(t, has(t, svc, 2, "read:articleT"+before, nil), "permanent grant covers any expiry")
}

func TestHasPrivilege_ExpireBefore(t *testing.T) {
	svc := newService(t)
	grant(t, svc, 1, "read:articleT"+exp.Format(time.RFC3339))
	grant(t, svc, 2, "read:article")

	required := "read:articleT" + exp.Add(-time.Hour).Format(time.RFC3339)
	assert.True(t, has(t, svc, 1, required, ptr(exp.Add(time.Hour))))
	assert.False(t, has(t, svc, 1, required, ptr(exp)))
	assert.False(t, has(t, svc, 2, required, ptr(exp.Add(time.Hour))), "permanent grants never expire before anything")
}

func TestGrant_DuplicateAndInvalid(t *testing.T) {
	svc := newService(t)
	grant(t, svc, 1, "read:article@3")

	ok, err := svc.Grant(context.Background(), 1, privilege.MustDecode("read:article@3T"+exp.Format(time.RFC3339)))
	require.NoError(t, err)
	assert.False(t, ok, "same grant with another expiry is not added")

	_, err = svc.Grant(context.Background(), 1, privilege.New("Read", "article"))
	require.ErrorIs(t, err, privilege.ErrInvalidFormat)

	set, err := svc.GetPrivileges(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "read:article@3", set.Encode())
}

func TestDeleteAndExpire(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	grant(t, svc, 1, "read:article")
	grant(t, svc, 1, "read:article@3")

	ok, err := svc.Expire(ctx, 1, privilege.New("read", "article"), exp)
	require.NoError(t, err)
	assert.True(t, ok)

	set, err := svc.GetPrivileges(ctx, 1)
	require.NoError(t, err)
	assert.True(t, set.Contains(privilege.New("read", "article").WithExpiry(exp)))
	assert.True(t, set.Contains(privilege.New("read", "article").WithResID(3)))

	ok, err = svc.Delete(ctx, 1, privilege.New("read", "article"))
	require.NoError(t, err)
	assert.True(t, ok, "delete ignores the expiry")

	ok, err = svc.Delete(ctx, 1, privilege.New("read", "article"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Expire(ctx, 1, privilege.New("write", "article"), exp)
	require.NoError(t, err)
	assert.False(t, ok)

	set, err = svc.GetPrivileges(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "read:article@3", set.Encode())
}

func TestMutationsAreAudited(t *testing.T) {
	ctx := context.Background()
	logs := audit.NewMemoryLogger(audit.WithClock(func() time.Time { return exp }))
	svc := newService(t, WithAuditLogger(logs))

	p := privilege.New("edit", "comment").WithResID(9)
	grant(t, svc, 7, privilege.Encode(p))
	_, _ = svc.Grant(ctx, 7, p) // no-op, not audited
	_, err := svc.Expire(ctx, 7, p, exp)
	require.NoError(t, err)
	_, err = svc.Delete(ctx, 7, p)
	require.NoError(t, err)

	entries, err := logs.LogsOfUser(ctx, 7, audit.Filter{Resources: []string{AuditResource}})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	revoke, update, granted := entries[0], entries[1], entries[2]
	assert.Equal(t, audit.ActionGrant, granted.Action)
	assert.Equal(t, "edit:comment@9", granted.RawDataAfter)
	assert.Equal(t, []int64{9}, granted.ResIDs)

	assert.Equal(t, audit.ActionUpdate, update.Action)
	assert.Equal(t, "edit:comment@9", update.RawDataBefore)
	assert.Equal(t, "edit:comment@9T2031-01-01T00:00:00Z", update.RawDataAfter)

	assert.Equal(t, audit.ActionRevoke, revoke.Action)
	assert.Equal(t, "edit:comment@9", revoke.RawDataBefore)
	assert.Empty(t, revoke.RawDataAfter)
}

type failingLogger struct{ audit.Logger }

func (failingLogger) Log(context.Context, audit.LogEntry) (int64, error) {
	return 0, errors.New("audit down")
}

func TestGrant_AuditFailureDoesNotFailMutation(t *testing.T) {
	svc := newService(t, WithAuditLogger(failingLogger{}))
	ok, err := svc.Grant(context.Background(), 1, privilege.New("read", "article"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewService_NilStore(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().List(ctx, 1, Filter{})
	require.ErrorIs(t, err, context.Canceled)
}
