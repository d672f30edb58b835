package token

import (
	"errors"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"cuidarmed_chat_client/internal/chat/domain"
)

// RoleType platform role carried in the bearer token
type RoleType string

const (
	// RoleAdmin is the admin role
	RoleAdmin RoleType = "admin"
	// RoleDoctor is the doctor role
	RoleDoctor RoleType = "doctor"
	// RolePatient is the patient role
	RolePatient RoleType = "patient"
)

// Claims structure for the AuthMS bearer token.
//
// user_id is the login identity, participant_id the role specific clinical
// identity (doctor or patient record id). AuthMS has emitted both numbers
// and numeric strings over time, so both decode through flexID.
type Claims struct {
	UserID        flexID `json:"user_id"`
	ParticipantID flexID `json:"participant_id"`
	Role          string `json:"role"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// flexID tolerates number or numeric-string claim encodings
type flexID int64

// UnmarshalJSON implement json.Unmarshaler
func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// some claims come as floats
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return err
		}
		n = int64(fl)
	}
	*f = flexID(n)
	return nil
}

// ParseIdentity extracts the session identity from a bearer token.
//
// The token is issued and verified by AuthMS; this engine only passes it
// through, so the claims are read without signature verification, same as
// the browser client does.
func ParseIdentity(bearer string) (domain.Identity, error) {
	tokenStr := strings.TrimPrefix(strings.TrimSpace(bearer), "Bearer ")
	if tokenStr == "" {
		return domain.Identity{}, errors.New("missing bearer token")
	}

	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return domain.Identity{}, err
	}

	id := domain.Identity{
		AuthID:        int64(claims.UserID),
		ParticipantID: int64(claims.ParticipantID),
		DisplayName:   claims.Name,
		Role:          claims.Role,
	}
	if id.AuthID <= 0 {
		return domain.Identity{}, errors.New("token carries no usable user_id")
	}
	return id, nil
}
