package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownEvent marks an inbound type this server does not handle.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrProtocolViolation marks a frame or payload with the wrong shape.
	ErrProtocolViolation = errors.New("protocol violation")
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ParseInbound decodes a raw frame into its envelope.
func ParseInbound(frame []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	if in.Type == "" {
		return Inbound{}, fmt.Errorf("%w: missing type", ErrProtocolViolation)
	}
	return in, nil
}

// Bind unmarshals the payload into dst and validates its required fields.
func (in Inbound) Bind(dst any) error {
	if len(in.Data) == 0 {
		return fmt.Errorf("%w: %s: missing data", ErrProtocolViolation, in.Type)
	}
	if err := json.Unmarshal(in.Data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProtocolViolation, in.Type, err)
	}
	if err := validatorInstance().Struct(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProtocolViolation, in.Type, err)
	}
	return nil
}
