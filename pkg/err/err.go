package errprocess

import (
	"errors"
	"fmt"

	"cuidarmed_chat_client/pkg/logger"
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Wrap log and wrap a lower error, keeps errors.Is working on cause
func Wrap(msg string, cause error) error {
	logger.Log.Errorf(msg, cause)
	return fmt.Errorf("%s: %w", msg, cause)
}
