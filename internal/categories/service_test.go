package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromarket/agromarket-backend/pkg/db/dbtest"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
)

func TestCreateAndListCategories(t *testing.T) {
	client := dbtest.New(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Tubers"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateCategoryInput{Name: " Grains "})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "tubers"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Grains", list[0].Name)
	assert.Equal(t, "Tubers", list[1].Name)
}
