package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromarket/agromarket-backend/pkg/db/dbtest"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
)

func TestSecretKeyPrefersStoredSetting(t *testing.T) {
	conn := dbtest.New(t).DB()
	admin := dbtest.Profile(t, conn, enums.RoleAdmin)
	svc, err := NewService(NewRepository(conn), "sk_env_1234", "pk_env")
	require.NoError(t, err)
	ctx := context.Background()

	key, err := svc.SecretKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk_env_1234", key)

	secret := "sk_live_abcdef9876"
	view, err := svc.UpdatePaystackKeys(ctx, admin.ID, UpdatePaystackKeysInput{SecretKey: &secret})
	require.NoError(t, err)
	assert.Equal(t, "**************9876", view.SecretKey)
	assert.Equal(t, "settings", view.SecretKeySource)
	assert.Equal(t, "pk_env", view.PublicKey)

	key, err = svc.SecretKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, secret, key)

	rotated := "sk_live_rotated0000"
	_, err = svc.UpdatePaystackKeys(ctx, admin.ID, UpdatePaystackKeysInput{SecretKey: &rotated})
	require.NoError(t, err)
	key, err = svc.SecretKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated, key)
}

func TestUpdatePaystackKeysRequiresAField(t *testing.T) {
	conn := dbtest.New(t).DB()
	svc, err := NewService(NewRepository(conn), "", "")
	require.NoError(t, err)

	_, err = svc.UpdatePaystackKeys(context.Background(), dbtest.Profile(t, conn, enums.RoleAdmin).ID, UpdatePaystackKeysInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	view, err := svc.PaystackKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unset", view.SecretKeySource)
	assert.Empty(t, view.SecretKey)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "***", Mask("abc"))
	assert.Equal(t, "****5678", Mask("12345678"))
}
