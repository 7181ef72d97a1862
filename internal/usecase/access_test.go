package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"propertychat/internal/domain/entity"
)

func TestRoleOf(t *testing.T) {
	c := &entity.Conversation{BuyerID: "b", SellerID: "s"}

	assert.Equal(t, RoleBuyer, roleOf(c, "b"))
	assert.Equal(t, RoleSeller, roleOf(c, "s"))
	assert.Equal(t, RoleNone, roleOf(c, "x"))
	assert.Equal(t, RoleNone, roleOf(c, ""))
}

func TestRoleForProperty(t *testing.T) {
	p := &entity.Property{OwnerID: "s"}

	assert.Equal(t, RoleSeller, roleForProperty(p, "s"))
	assert.Equal(t, RoleBuyer, roleForProperty(p, "b"))
}
