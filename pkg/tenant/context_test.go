package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	ctx := ToContext(context.Background(), &Context{TenantID: "t1", StudioID: "s1", ActorID: "u1"})

	tc, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", tc.TenantID)
	assert.Equal(t, "s1", tc.StudioID)
	assert.Equal(t, "u1", tc.ActorID)
	assert.Equal(t, "t1", TenantID(ctx))
	assert.Equal(t, "u1", ActorID(ctx))
}

func TestFromContext_MissingTenant(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrMissingTenantContext)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, (&Context{ActorID: "u1"}).Validate(), ErrMissingTenantID)
	assert.ErrorIs(t, (&Context{TenantID: "t1"}).Validate(), ErrMissingActorID)
	assert.NoError(t, (&Context{TenantID: "t1", ActorID: "u1"}).Validate())
}
