package service

import (
	"context"
	"errors"
)

// Publishers fans one event out to every sink. All sinks are tried; their
// errors are joined.
type Publishers []EventPublisher

func (ps Publishers) Publish(ctx context.Context, v any, msgID string) error {
	var errList []error
	for _, p := range ps {
		if err := p.Publish(ctx, v, msgID); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
