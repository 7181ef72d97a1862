package usecase

import "propertychat/internal/domain/entity"

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleNone   Role = "none"
)

// roleOf is re-derived on every call; nothing about membership is cached.
func roleOf(conversation *entity.Conversation, userID string) Role {
	switch {
	case userID == "":
		return RoleNone
	case conversation.BuyerID == userID:
		return RoleBuyer
	case conversation.SellerID == userID:
		return RoleSeller
	}
	return RoleNone
}

func roleForProperty(property *entity.Property, userID string) Role {
	if property.OwnerID == userID {
		return RoleSeller
	}
	return RoleBuyer
}
