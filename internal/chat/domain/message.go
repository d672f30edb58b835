package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Message is one chat message in canonical form.
//
// ID is server assigned once persisted. Optimistic entries carry a
// timestamp derived placeholder id and Pending=true until the live
// channel echoes the confirmed message back.
type Message struct {
	ID                  int64     `json:"id"`
	RoomID              int64     `json:"roomId"`
	SenderAuthID        int64     `json:"senderId"`
	SenderParticipantID int64     `json:"senderParticipantId"`
	Text                string    `json:"text"`
	SentAt              time.Time `json:"sentAt"`
	IsRead              bool      `json:"isRead"`
	Pending             bool      `json:"-"`
}

// Field aliases seen across the collaborator services. Every field is
// read under at least two capitalization conventions, the first hit wins.
var (
	aliasID          = []string{"id", "Id", "ID", "messageId", "MessageId", "message_id"}
	aliasRoom        = []string{"roomId", "RoomId", "RoomID", "room_id", "chatRoomId"}
	aliasSender      = []string{"senderId", "SenderId", "SenderID", "sender_id", "userId", "UserId"}
	aliasParticipant = []string{"senderParticipantId", "SenderParticipantId", "participantId", "ParticipantId", "participant_id"}
	aliasText        = []string{"text", "Text", "content", "Content", "message", "Message"}
	aliasSentAt      = []string{"sentAt", "SentAt", "sent_at", "timestamp", "Timestamp", "createdAt", "CreatedAt"}
	aliasIsRead      = []string{"isRead", "IsRead", "is_read", "read", "Read"}
)

// NormalizeMessage maps a raw collaborator payload to the canonical Message.
// This is the single translation layer for the services' inconsistent key
// casing; no alias handling exists anywhere past this point. A field that
// cannot be coerced is left at its zero value, never an error, so one bad
// field does not drop the whole delivery.
func NormalizeMessage(raw map[string]interface{}) Message {
	var m Message
	m.ID, _ = pickInt64(raw, aliasID)
	m.RoomID, _ = pickInt64(raw, aliasRoom)
	m.SenderAuthID, _ = pickInt64(raw, aliasSender)
	m.SenderParticipantID, _ = pickInt64(raw, aliasParticipant)
	m.Text = pickString(raw, aliasText)
	m.SentAt = pickTime(raw, aliasSentAt)
	m.IsRead = pickBool(raw, aliasIsRead)
	return m
}

// FormatClock renders a message timestamp for display. Malformed or
// missing timestamps render as empty string.
func FormatClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.UTC).Format("15:04")
}

func pickInt64(raw map[string]interface{}, keys []string) (int64, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if n, ok := toInt64(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func pickString(raw map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func pickBool(raw map[string]interface{}, keys []string) bool {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return false
}

func pickTime(raw map[string]interface{}, keys []string) time.Time {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if t := toTime(v); !t.IsZero() {
				return t
			}
		}
	}
	return time.Time{}
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// timestamp layouts without zone are treated as UTC, mirroring the
// history service which drops the offset.
var bareLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func toTime(v interface{}) time.Time {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
			return time.Time{}
		}
		// epoch values past 1e12 can only be millis
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC()
		}
		return time.Unix(int64(t), 0).UTC()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return parsed.UTC()
		}
		for _, layout := range bareLayouts {
			if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
