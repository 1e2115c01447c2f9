package core

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/oapi"
)

// ErrUnknownTable is returned when a table key is not in the model.
var ErrUnknownTable = errors.New("table not found")

// displayGroup is the group every read is scoped to.
const displayGroup = "All"

// ListAllTables returns every table of the model. On failure the result is
// empty and the error says why; an empty result with a nil error means the
// model has no tables.
func (s *Service) ListAllTables(ctx context.Context) ([]TableDescriptor, error) {
	return s.listTables(ctx, oapi.GetAllTables, true)
}

// ListAvailableTables returns the tables importable in the model's current
// state. IsEmpty is not reported for this listing and is always false.
func (s *Service) ListAvailableTables(ctx context.Context) ([]TableDescriptor, error) {
	return s.listTables(ctx, oapi.GetAvailableTables, false)
}

func (s *Service) listTables(ctx context.Context, method oapi.Method, all bool) ([]TableDescriptor, error) {
	var out []TableDescriptor
	err := s.withLease(ctx, string(method), func() error {
		payload, err := s.call(ctx, method)
		if err != nil {
			return err
		}
		listing, err := oapi.DecodeTableListing(payload, all)
		if err != nil {
			return s.malformed(ctx, method, payload, err)
		}

		out = make([]TableDescriptor, listing.Len())
		for i := range out {
			out[i] = TableDescriptor{
				Key:         listing.Keys[i],
				DisplayName: listing.Names[i],
				ImportType:  ImportType(listing.ImportTypes[i]),
			}
			if all {
				out[i].IsEmpty = listing.Empty[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TableFields describes the columns of a table.
func (s *Service) TableFields(ctx context.Context, key string) ([]FieldDescriptor, error) {
	var out []FieldDescriptor
	err := s.withLease(ctx, "fields", func() error {
		payload, err := s.call(ctx, oapi.GetAllFieldsInTable, key)
		if err != nil {
			return s.tableCallError(ctx, key, err)
		}
		listing, err := oapi.DecodeFieldListing(payload)
		if err != nil {
			return s.malformed(ctx, oapi.GetAllFieldsInTable, payload, err)
		}

		out = make([]FieldDescriptor, listing.Len())
		for i := range out {
			out[i] = FieldDescriptor{
				FieldKey:     listing.Keys[i],
				FieldName:    listing.Names[i],
				Description:  listing.Descriptions[i],
				UnitsLabel:   listing.Units[i],
				IsImportable: listing.Importable[i],
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TableData reads every row of a table in the canonical unit system. The
// present units are restored afterwards, also on failure.
func (s *Service) TableData(ctx context.Context, key string) ([]TableRow, error) {
	display, err := s.readDisplay(ctx, key)
	if err != nil {
		return nil, err
	}
	rows, err := ToRows(display.Headers, display.Cells)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("table read", "table", key, "rows", len(rows))
	return rows, nil
}

// TableFrame reads a table like TableData but returns it column-oriented.
func (s *Service) TableFrame(ctx context.Context, key string) (Frame, error) {
	display, err := s.readDisplay(ctx, key)
	if err != nil {
		return Frame{}, err
	}
	return ToFrame(display.Headers, display.Cells)
}

// readDisplay fetches the raw display array of a table under the canonical
// units.
func (s *Service) readDisplay(ctx context.Context, key string) (oapi.DisplayArray, error) {
	var display oapi.DisplayArray
	err := s.withLease(ctx, "read", func() error {
		return s.withUnits(ctx, s.canonical, func(ctx context.Context) error {
			payload, err := s.call(ctx, oapi.GetTableForDisplayArray, key, []string{}, displayGroup)
			if err != nil {
				return s.tableCallError(ctx, key, err)
			}
			display, err = oapi.DecodeDisplayArray(payload)
			if err != nil {
				return s.malformed(ctx, oapi.GetTableForDisplayArray, payload, err)
			}
			// A ragged cell sequence is left to the converter's shape check.
			if n := len(display.Headers); n > 0 && len(display.Cells)%n == 0 && len(display.Cells)/n != display.Records {
				return s.malformed(ctx, oapi.GetTableForDisplayArray, payload,
					fmt.Errorf("%d records reported, %d in the cells", display.Records, len(display.Cells)/n))
			}
			return nil
		})
	})
	if err != nil {
		return oapi.DisplayArray{}, fmt.Errorf("read table %q: %w", key, err)
	}
	return display, nil
}

// tableCallError turns a failed call on key into ErrUnknownTable when the
// model has no such table. The caller holds the lease.
func (s *Service) tableCallError(ctx context.Context, key string, err error) error {
	if !errors.Is(err, ErrCallFailed) || s.knownTable(ctx, key) {
		return err
	}
	return fmt.Errorf("%w: %q (%w)", ErrUnknownTable, key, err)
}

// knownTable reports whether key is in the model. A failed listing counts
// as known, so the original error is reported instead.
func (s *Service) knownTable(ctx context.Context, key string) bool {
	payload, err := s.call(ctx, oapi.GetAllTables)
	if err != nil {
		return true
	}
	listing, err := oapi.DecodeTableListing(payload, true)
	if err != nil {
		return true
	}
	return slices.Contains(listing.Keys, key)
}
