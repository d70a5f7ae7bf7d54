package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T, l Logger) {
	t.Helper()
	entries := []LogEntry{
		{LoggedAt: t0, UserID: 1, UserName: "Ada", UserEmail: ptr("ada@example.com"), Resource: "task", ResIDs: []int64{1, 2}, Action: ActionCreate, RawDataAfter: `{"id":1}`},
		{LoggedAt: t0.Add(time.Minute), UserID: 1, UserName: "Ada", Resource: "task", ResIDs: []int64{3}, Action: ActionUpdate},
		{LoggedAt: t0.Add(2 * time.Minute), UserID: 1, UserName: "Ada", Resource: "privilege", ResIDs: []int64{1}, Action: ActionGrant},
		{LoggedAt: t0.Add(2 * time.Minute), UserID: 1, UserName: "Ada", Resource: "user", Action: ActionLogin},
		{LoggedAt: t0, UserID: 2, UserName: "Bob", Resource: "task", ResIDs: []int64{1}, Action: ActionDelete},
	}
	for i, e := range entries {
		id, err := l.Log(context.Background(), e)
		require.NoError(t, err)
		require.Equal(t, int64(i+1), id)
	}
}

func ids(es []LogEntry) []int64 {
	out := make([]int64, len(es))
	for i, e := range es {
		out[i] = e.LogID
	}
	return out
}

func TestMemoryLogger_GetLog(t *testing.T) {
	l := NewMemoryLogger()
	seed(t, l)

	e, err := l.GetLog(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "task", e.Resource)
	assert.Equal(t, []int64{1, 2}, e.ResIDs)
	assert.Equal(t, `{"id":1}`, e.RawDataAfter)

	_, err = l.GetLog(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = l.GetLog(context.Background(), 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLogger_LogsOfUser_Ordering(t *testing.T) {
	l := NewMemoryLogger()
	seed(t, l)

	got, err := l.LogsOfUser(context.Background(), 1, Filter{})
	require.NoError(t, err)
	// Equal timestamps fall back to the id, newest first.
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(got))
}

func TestMemoryLogger_LogsOfUser_Filters(t *testing.T) {
	l := NewMemoryLogger()
	seed(t, l)

	cases := []struct {
		name string
		f    Filter
		want []int64
	}{
		{"actions", Filter{Actions: []Action{ActionCreate, ActionGrant}}, []int64{3, 1}},
		{"resources", Filter{Resources: []string{"task"}}, []int64{2, 1}},
		{"email", Filter{UserEmail: ptr("ada@example.com")}, []int64{1}},
		{"name mismatch", Filter{UserName: ptr("Bob")}, nil},
		{"before inclusive", Filter{Before: ptr(t0.Add(time.Minute))}, []int64{2, 1}},
		{"after inclusive", Filter{After: ptr(t0.Add(2 * time.Minute))}, []int64{4, 3}},
		{
			"resource ids scoped to listed resources",
			Filter{Resources: []string{"task", "privilege"}, ResourceIDs: map[string][]int64{"task": {3}}},
			[]int64{3, 2},
		},
		{
			"resource ids of unlisted resources ignored",
			Filter{ResourceIDs: map[string][]int64{"task": {3}}},
			[]int64{4, 3, 2, 1},
		},
		{
			"any shared id matches",
			Filter{Resources: []string{"task"}, ResourceIDs: map[string][]int64{"task": {2, 9}}},
			[]int64{1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := l.LogsOfUser(context.Background(), 1, tc.f)
			require.NoError(t, err)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestMemoryLogger_ConvertsRawData(t *testing.T) {
	l := NewMemoryLogger(WithConverter(GzipConverter{}))
	id, err := l.Log(context.Background(), LogEntry{UserID: 1, Resource: "task", Action: ActionUpdate, RawDataBefore: "old", RawDataAfter: "new"})
	require.NoError(t, err)

	// Stored form is converted.
	assert.NotEqual(t, "old", l.entries[0].RawDataBefore)

	e, err := l.GetLog(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "old", e.RawDataBefore)
	assert.Equal(t, "new", e.RawDataAfter)
}

func TestMemoryLogger_DefaultsLoggedAt(t *testing.T) {
	l := NewMemoryLogger(WithClock(func() time.Time { return t0 }))
	id, err := l.Log(context.Background(), LogEntry{UserID: 1, Resource: "user", Action: ActionLogout, ResIDs: []int64{5, 5, 4}})
	require.NoError(t, err)

	e, err := l.GetLog(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, e.LoggedAt.Equal(t0))
	assert.Equal(t, []int64{4, 5}, e.ResIDs)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("REVOKE")
	require.NoError(t, err)
	assert.Equal(t, ActionRevoke, a)

	_, err = ParseAction("revoke")
	require.Error(t, err)
}
