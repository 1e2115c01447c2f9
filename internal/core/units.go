package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/oapi"
	"github.com/spf13/cast"
)

// ErrUnknownUnits is returned for a unit system outside the enumeration.
var ErrUnknownUnits = errors.New("unknown unit system")

// ParseUnits resolves a unit system name, wrapping failures with
// ErrUnknownUnits.
func ParseUnits(name string) (oapi.Units, error) {
	u, err := oapi.ParseUnits(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnits, name)
	}
	return u, nil
}

// presentUnits reads the present unit system. The caller holds the lease.
func (s *Service) presentUnits(ctx context.Context) (oapi.Units, error) {
	raw, err := s.query(ctx, oapi.GetPresentUnits)
	if err != nil {
		return 0, err
	}
	n, err := cast.ToIntE(raw)
	if err != nil || !oapi.Units(n).Valid() {
		return 0, s.malformed(ctx, oapi.GetPresentUnits, raw, fmt.Errorf("%w: %v", ErrUnknownUnits, raw))
	}
	return oapi.Units(n), nil
}

// setPresentUnits switches the present unit system. The caller holds the
// lease.
func (s *Service) setPresentUnits(ctx context.Context, u oapi.Units) error {
	if !u.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownUnits, int(u))
	}
	_, err := s.call(ctx, oapi.SetPresentUnits, int(u))
	return err
}

// withUnits runs fn with target as the present unit system and restores the
// previous system afterwards, whether fn succeeds, fails or panics. The
// restore is not cancelled with ctx. The caller holds the lease.
func (s *Service) withUnits(ctx context.Context, target oapi.Units, fn func(context.Context) error) (err error) {
	prev, err := s.presentUnits(ctx)
	if err != nil {
		return err
	}
	if prev != target {
		if err := s.setPresentUnits(ctx, target); err != nil {
			return err
		}
		defer func() {
			rerr := s.setPresentUnits(context.WithoutCancel(ctx), prev)
			if rerr != nil {
				logging.Critical(ctx, logging.FromContext(ctx), "present units not restored",
					"units", prev.String(),
					"error", rerr,
				)
				if err == nil {
					err = rerr
				}
			}
		}()
	}
	return fn(ctx)
}
