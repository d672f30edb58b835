package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"cuidarmed_chat_client/internal/chat/domain"
)

// RoomRepository definition the DirectoryMS rooms collaborator
type RoomRepository interface {
	// ListRooms returns every room the identity belongs to. Sole source
	// of truth for unread resynchronization.
	ListRooms(ctx context.Context, authID int64) ([]domain.Room, error)
	// CreateRoom asks the service for a new room bound to the appointment
	CreateRoom(ctx context.Context, doctorID, patientID, appointmentID int64) (*domain.Room, error)
}

type directoryRoomRepository struct {
	rest *restClient
}

// NewDirectoryRoomRepository create the REST rooms repository
func NewDirectoryRoomRepository(baseURL, bearer string, timeout time.Duration) RoomRepository {
	return &directoryRoomRepository{rest: newRESTClient(baseURL, bearer, timeout)}
}

// ListRooms GET /rooms?forIdentity=<authID>
func (r *directoryRoomRepository) ListRooms(ctx context.Context, authID int64) ([]domain.Room, error) {
	if authID <= 0 {
		return nil, fmt.Errorf("%w: identity %d", domain.ErrValidation, authID)
	}

	query := url.Values{}
	query.Set("forIdentity", strconv.FormatInt(authID, 10))

	var raw []map[string]interface{}
	if err := r.rest.getJSON(ctx, "/rooms", query, &raw); err != nil {
		return nil, err
	}

	rooms := make([]domain.Room, 0, len(raw))
	for _, entry := range raw {
		rooms = append(rooms, domain.NormalizeRoom(entry))
	}
	return rooms, nil
}

// CreateRoom POST /rooms
func (r *directoryRoomRepository) CreateRoom(ctx context.Context, doctorID, patientID, appointmentID int64) (*domain.Room, error) {
	if doctorID <= 0 || patientID <= 0 || appointmentID <= 0 {
		return nil, fmt.Errorf("%w: doctor=%d patient=%d appointment=%d",
			domain.ErrValidation, doctorID, patientID, appointmentID)
	}

	body := map[string]int64{
		"doctorId":      doctorID,
		"patientId":     patientID,
		"appointmentId": appointmentID,
	}
	var raw map[string]interface{}
	if err := r.rest.postJSON(ctx, "/rooms", body, &raw); err != nil {
		return nil, err
	}
	room := domain.NormalizeRoom(raw)
	return &room, nil
}
