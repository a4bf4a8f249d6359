package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomePathCoversEveryRole(t *testing.T) {
	for _, role := range validRoles {
		path, err := HomePath(role)
		require.NoError(t, err, role)
		assert.NotEmpty(t, path)
	}
	_, err := HomePath(Role("guest"))
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("delivery_agent")
	require.NoError(t, err)
	assert.Equal(t, RoleDeliveryAgent, role)

	_, err = ParseRole("Delivery_Agent")
	assert.Error(t, err)
}

func TestSelfRegistrable(t *testing.T) {
	assert.True(t, RoleFarmer.SelfRegistrable())
	assert.False(t, RoleAdmin.SelfRegistrable())
	assert.False(t, Role("root").SelfRegistrable())
}

func TestNegotiationStatusHelpers(t *testing.T) {
	status, err := ParseNegotiationStatus("counter")
	require.NoError(t, err)
	assert.True(t, status.IsOpen())
	assert.False(t, status.IsTerminal())
	assert.True(t, NegotiationStatusAccepted.IsTerminal())

	_, err = ParseNegotiationStatus("cancelled")
	assert.Error(t, err)
}

func TestPaymentEnums(t *testing.T) {
	assert.True(t, PaymentTypeWalletTopup.IsValid())
	_, err := ParsePaymentType("refund")
	assert.Error(t, err)

	status, err := ParsePaymentStatus("success")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusSuccess, status)
}
