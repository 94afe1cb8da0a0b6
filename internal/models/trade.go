package models

import "github.com/google/uuid"

// Trade is a pending peer-to-peer exchange offer. Field lists carry board
// indexes. Both money legs are independent: OfferedMoney flows from the
// offerer to the recipient and WantedMoney flows back.
type Trade struct {
	FromUserID uuid.UUID `json:"fromUserId"`
	ToUserID   uuid.UUID `json:"toUserId"`

	OfferedFields []int `json:"offeredFields"`
	WantedFields  []int `json:"wantedFields"`

	OfferedMoney int64 `json:"offeredMoney"`
	WantedMoney  int64 `json:"wantedMoney"`
}

// IsTrivial reports whether the offer carries nothing of value on either side.
func (t *Trade) IsTrivial() bool {
	return len(t.OfferedFields) == 0 && len(t.WantedFields) == 0 &&
		t.OfferedMoney == 0 && t.WantedMoney == 0
}
