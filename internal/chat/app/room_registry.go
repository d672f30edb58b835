package app

import (
	"context"
	"fmt"

	"cuidarmed_chat_client/internal/chat/domain"
	"cuidarmed_chat_client/internal/chat/repository"
)

// RoomRegistry lists the identity's rooms and resolves the room for an
// appointment, creating one only when no tagged room exists yet.
type RoomRegistry struct {
	viewer   domain.Identity
	roomRepo repository.RoomRepository
}

// NewRoomRegistry create the registry for one identity
func NewRoomRegistry(viewer domain.Identity, roomRepo repository.RoomRepository) *RoomRegistry {
	return &RoomRegistry{viewer: viewer, roomRepo: roomRepo}
}

// ListRooms returns the identity's rooms, de-duplicated by room id.
// The first occurrence wins when the listing repeats a room.
func (r *RoomRegistry) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := r.roomRepo.ListRooms(ctx, r.viewer.AuthID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(rooms))
	out := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		if _, dup := seen[room.RoomID]; dup {
			continue
		}
		seen[room.RoomID] = struct{}{}
		out = append(out, room)
	}
	return out, nil
}

// FindRoomForAppointment matches only rooms whose appointment tag is
// present and equal. An untagged room never matches, even when it is the
// only candidate, so a stale untagged room cannot be reused for a new
// appointment.
func FindRoomForAppointment(appointmentID int64, rooms []domain.Room) *domain.Room {
	if appointmentID <= 0 {
		return nil
	}
	for i := range rooms {
		if rooms[i].AppointmentID != nil && *rooms[i].AppointmentID == appointmentID {
			return &rooms[i]
		}
	}
	return nil
}

// CreateOrGetRoom resolves the room for a confirmed appointment,
// looking the appointment tag up before asking the service for a new
// room. Missing or non-positive ids are a validation error, never a
// silent no-op.
func (r *RoomRegistry) CreateOrGetRoom(ctx context.Context, doctorID, patientID, appointmentID int64) (*domain.Room, error) {
	if doctorID <= 0 || patientID <= 0 || appointmentID <= 0 {
		return nil, fmt.Errorf("%w: doctor=%d patient=%d appointment=%d",
			domain.ErrValidation, doctorID, patientID, appointmentID)
	}

	rooms, err := r.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if room := FindRoomForAppointment(appointmentID, rooms); room != nil {
		return room, nil
	}

	return r.roomRepo.CreateRoom(ctx, doctorID, patientID, appointmentID)
}
