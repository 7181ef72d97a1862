package entity

import "time"

type Conversation struct {
	ID         string `json:"id" firestore:"id"`
	PropertyID string `json:"property_id" firestore:"propertyId"`
	BuyerID    string `json:"buyer_id" firestore:"buyerId"`
	SellerID   string `json:"seller_id" firestore:"sellerId"`
	// Participants duplicates {BuyerID, SellerID} so document stores can index membership.
	Participants  []string   `json:"-" firestore:"participants"`
	LastMessageAt *time.Time `json:"last_message_at" firestore:"lastMessageAt"`
	CreatedAt     time.Time  `json:"created_at" firestore:"createdAt"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

// OtherParticipant returns the counterpart of userID, or "" when userID is not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.BuyerID:
		return c.SellerID
	case c.SellerID:
		return c.BuyerID
	}
	return ""
}
