package domain

import (
	"time"
)

// Direction of a journaled message.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MessageEvent is one entry of the conversation journal.
type MessageEvent struct {
	ID          string    `json:"id"`
	Phone       string    `json:"phone"`
	Direction   Direction `json:"direction"`
	Content     string    `json:"content"`
	StateBefore State     `json:"state_before"`
	StateAfter  State     `json:"state_after"`
	Delivered   bool      `json:"delivered"`
	CreatedAt   time.Time `json:"created_at"`
}
