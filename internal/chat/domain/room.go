package domain

import "time"

// Room is a conversation channel, ideally bound to exactly one appointment.
// AppointmentID is nil when the room was never tagged; such rooms must not
// be matched as "the room for appointment X".
type Room struct {
	RoomID          int64     `json:"roomId"`
	AppointmentID   *int64    `json:"appointmentId"`
	DoctorID        int64     `json:"doctorId"`
	PatientID       int64     `json:"patientId"`
	LastSenderID    int64     `json:"lastSenderId"`
	UnreadCount     int       `json:"unreadCount"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
}

// room payload aliases, same inconsistency as messages
var (
	aliasRoomID          = []string{"roomId", "RoomId", "RoomID", "room_id", "id", "Id"}
	aliasAppointment     = []string{"appointmentId", "AppointmentId", "appointment_id"}
	aliasDoctor          = []string{"doctorId", "DoctorId", "doctor_id"}
	aliasPatient         = []string{"patientId", "PatientId", "patient_id"}
	aliasLastSender      = []string{"lastSenderId", "LastSenderId", "last_sender_id", "lastSender"}
	aliasUnread          = []string{"unreadCount", "UnreadCount", "unread_count", "unread"}
	aliasLastMessage     = []string{"lastMessage", "LastMessage", "last_message"}
	aliasLastMessageTime = []string{"lastMessageTime", "LastMessageTime", "last_message_time", "lastMessageAt"}
)

// NormalizeRoom maps a raw rooms-listing payload to the canonical Room.
// Absent, null or non-positive appointment ids normalize to nil so the
// appointment lookup can never bind to an untagged room.
func NormalizeRoom(raw map[string]interface{}) Room {
	var r Room
	r.RoomID, _ = pickInt64(raw, aliasRoomID)
	if id, ok := pickInt64(raw, aliasAppointment); ok && id > 0 {
		r.AppointmentID = &id
	}
	r.DoctorID, _ = pickInt64(raw, aliasDoctor)
	r.PatientID, _ = pickInt64(raw, aliasPatient)
	r.LastSenderID, _ = pickInt64(raw, aliasLastSender)
	if n, ok := pickInt64(raw, aliasUnread); ok && n > 0 {
		r.UnreadCount = int(n)
	}
	r.LastMessage = pickString(raw, aliasLastMessage)
	r.LastMessageTime = pickTime(raw, aliasLastMessageTime)
	return r
}
