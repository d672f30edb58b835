package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"cuidarmed_chat_client/internal/chat/domain"
)

// MessageRepository definition the ClinicalMS message history collaborator
type MessageRepository interface {
	// History returns one page of persisted messages for a room
	History(ctx context.Context, roomID, authID int64, page, pageSize int) ([]domain.Message, error)
}

type clinicalMessageRepository struct {
	rest *restClient
}

// NewClinicalMessageRepository create the REST history repository
func NewClinicalMessageRepository(baseURL, bearer string, timeout time.Duration) MessageRepository {
	return &clinicalMessageRepository{rest: newRESTClient(baseURL, bearer, timeout)}
}

// History GET /messages?room=&identity=&page=&pageSize=
func (r *clinicalMessageRepository) History(ctx context.Context, roomID, authID int64, page, pageSize int) ([]domain.Message, error) {
	if roomID <= 0 || authID <= 0 {
		return nil, fmt.Errorf("%w: room=%d identity=%d", domain.ErrValidation, roomID, authID)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	query := url.Values{}
	query.Set("room", strconv.FormatInt(roomID, 10))
	query.Set("identity", strconv.FormatInt(authID, 10))
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var raw []map[string]interface{}
	if err := r.rest.getJSON(ctx, "/messages", query, &raw); err != nil {
		return nil, err
	}

	msgs := make([]domain.Message, 0, len(raw))
	for _, entry := range raw {
		msgs = append(msgs, domain.NormalizeMessage(entry))
	}
	return msgs, nil
}
