package domain

// Identity holds the session user identities for chat
//
// AuthID is the login identity issued by AuthMS. ParticipantID is the
// role specific clinical identity (doctor or patient record id) and may
// differ from AuthID. CounterpartID is the other side of the currently
// open conversation.
type Identity struct {
	AuthID        int64
	ParticipantID int64
	CounterpartID int64
	DisplayName   string
	Role          string
}

// OwnsAuth reports whether the given auth id is the viewer's login identity.
// Read/unread bookkeeping is always judged against AuthID.
func (i Identity) OwnsAuth(authID int64) bool {
	return authID > 0 && authID == i.AuthID
}

// DeriveParticipant fills SenderParticipantID when the collaborator omitted it.
// Rule: a message authored under the viewer's auth identity carries the
// viewer's participant identity, anything else carries the counterpart's.
func DeriveParticipant(m *Message, viewer Identity) {
	if m.SenderParticipantID > 0 {
		return
	}
	if viewer.OwnsAuth(m.SenderAuthID) {
		m.SenderParticipantID = viewer.ParticipantID
	} else {
		m.SenderParticipantID = viewer.CounterpartID
	}
}
