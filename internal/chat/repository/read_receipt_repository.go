package repository

import (
	"context"
	"fmt"
	"time"

	"cuidarmed_chat_client/internal/chat/domain"
)

// ReadReceiptRepository definition the mark-as-read collaborator
type ReadReceiptRepository interface {
	// MarkRead POST /readReceipt. The caller computes the read count
	// locally and never trusts this call's response body.
	MarkRead(ctx context.Context, roomID, authID int64) error
}

type clinicalReadReceiptRepository struct {
	rest *restClient
}

// NewClinicalReadReceiptRepository create the REST read-receipt repository
func NewClinicalReadReceiptRepository(baseURL, bearer string, timeout time.Duration) ReadReceiptRepository {
	return &clinicalReadReceiptRepository{rest: newRESTClient(baseURL, bearer, timeout)}
}

// MarkRead mark every message of the room read for the identity
func (r *clinicalReadReceiptRepository) MarkRead(ctx context.Context, roomID, authID int64) error {
	if roomID <= 0 || authID <= 0 {
		return fmt.Errorf("%w: room=%d identity=%d", domain.ErrValidation, roomID, authID)
	}

	body := map[string]int64{
		"roomId":   roomID,
		"identity": authID,
	}
	return r.rest.postJSON(ctx, "/readReceipt", body, nil)
}
