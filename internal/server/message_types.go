package server

import "strconv"

// MessageType represents a WebSocket message type with type safety
type MessageType string

const (
	// Client to server messages
	MessageTypeCreateRoom     MessageType = "create_room"
	MessageTypeJoinRoom       MessageType = "join_room"
	MessageTypeWatchRoom      MessageType = "watch_room"
	MessageTypeLeaveRoom      MessageType = "leave_room"
	MessageTypeStartHand      MessageType = "start_hand"
	MessageTypePlaceBet       MessageType = "place_bet"
	MessageTypeCheck          MessageType = "check"
	MessageTypeCall           MessageType = "call"
	MessageTypeRaise          MessageType = "raise"
	MessageTypeFold           MessageType = "fold"
	MessageTypeAllIn          MessageType = "all_in"
	MessageTypeGetRoomState   MessageType = "get_room_state"
	MessageTypeGetActiveRooms MessageType = "get_active_rooms"
	MessageTypeSendMessage    MessageType = "send_message"

	// Server to client messages
	MessageTypeWelcome         MessageType = "welcome"
	MessageTypeError           MessageType = "error"
	MessageTypeAck             MessageType = "ack"
	MessageTypeRoomState       MessageType = "room_state"
	MessageTypeRoomList        MessageType = "room_list"
	MessageTypeEvent           MessageType = "event"
	MessageTypeMessageReceived MessageType = "message_received"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

func stakes(small, big int) string {
	return strconv.Itoa(small) + "/" + strconv.Itoa(big)
}
