package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/oapi"
	"github.com/spf13/cast"
)

// ModelInfo is a snapshot of the model's state.
type ModelInfo struct {
	Filename       string     `json:"filename" yaml:"filename"`
	Version        string     `json:"version" yaml:"version"`
	APIVersion     float64    `json:"apiVersion" yaml:"apiVersion"`
	PresentUnits   oapi.Units `json:"presentUnits" yaml:"presentUnits"`
	DatabaseUnits  oapi.Units `json:"databaseUnits" yaml:"databaseUnits"`
	CanonicalUnits oapi.Units `json:"canonicalUnits" yaml:"canonicalUnits"`
	Locked         bool       `json:"locked" yaml:"locked"`
	MergeTolerance float64    `json:"mergeTolerance" yaml:"mergeTolerance"`
	PendingEdits   []string   `json:"pendingEdits" yaml:"pendingEdits"`
}

// ModelInfo reads the model's state in one lease.
func (s *Service) ModelInfo(ctx context.Context) (ModelInfo, error) {
	info := ModelInfo{CanonicalUnits: s.canonical, PendingEdits: s.PendingEdits()}
	err := s.withLease(ctx, "model", func() error {
		var err error
		if info.Filename, err = s.filename(ctx, true); err != nil {
			return err
		}
		if info.Version, err = s.version(ctx); err != nil {
			return err
		}
		if info.APIVersion, err = s.apiVersion(ctx); err != nil {
			return err
		}
		if info.PresentUnits, err = s.presentUnits(ctx); err != nil {
			return err
		}
		if info.DatabaseUnits, err = s.databaseUnits(ctx); err != nil {
			return err
		}
		if info.Locked, err = s.isLocked(ctx); err != nil {
			return err
		}
		info.MergeTolerance, err = s.mergeTolerance(ctx)
		return err
	})
	return info, err
}

// PresentUnits returns the unit system the model currently displays.
func (s *Service) PresentUnits(ctx context.Context) (oapi.Units, error) {
	var u oapi.Units
	err := s.withLease(ctx, "units", func() error {
		var err error
		u, err = s.presentUnits(ctx)
		return err
	})
	return u, err
}

// DatabaseUnits returns the unit system the model stores values in.
func (s *Service) DatabaseUnits(ctx context.Context) (oapi.Units, error) {
	var u oapi.Units
	err := s.withLease(ctx, "units", func() error {
		var err error
		u, err = s.databaseUnits(ctx)
		return err
	})
	return u, err
}

func (s *Service) databaseUnits(ctx context.Context) (oapi.Units, error) {
	raw, err := s.query(ctx, oapi.GetDatabaseUnits)
	if err != nil {
		return 0, err
	}
	n, err := cast.ToIntE(raw)
	if err != nil || !oapi.Units(n).Valid() {
		return 0, s.malformed(ctx, oapi.GetDatabaseUnits, raw, fmt.Errorf("%w: %v", ErrUnknownUnits, raw))
	}
	return oapi.Units(n), nil
}

// SetPresentUnits switches the unit system the model displays.
func (s *Service) SetPresentUnits(ctx context.Context, u oapi.Units) error {
	if !u.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownUnits, int(u))
	}
	return s.withLease(ctx, "units", func() error {
		err := s.setPresentUnits(ctx, u)
		s.recordModel(ctx, ActionSetUnits, u.String(), err)
		return err
	})
}

// IsLocked reports whether the model is locked.
func (s *Service) IsLocked(ctx context.Context) (bool, error) {
	var locked bool
	err := s.withLease(ctx, "lock", func() error {
		var err error
		locked, err = s.isLocked(ctx)
		return err
	})
	return locked, err
}

func (s *Service) isLocked(ctx context.Context) (bool, error) {
	raw, err := s.query(ctx, oapi.GetModelIsLocked)
	if err != nil {
		return false, err
	}
	locked, err := cast.ToBoolE(raw)
	if err != nil {
		return false, s.malformed(ctx, oapi.GetModelIsLocked, raw, err)
	}
	return locked, nil
}

// SetLocked locks or unlocks the model. Unlocking discards analysis
// results in the application.
func (s *Service) SetLocked(ctx context.Context, locked bool) error {
	action := ActionUnlock
	if locked {
		action = ActionLock
	}
	return s.withLease(ctx, string(action), func() error {
		_, err := s.call(ctx, oapi.SetModelIsLocked, locked)
		s.recordModel(ctx, action, "", err)
		return err
	})
}

// ModelFilename returns the model file name, with its directory when
// includePath is set.
func (s *Service) ModelFilename(ctx context.Context, includePath bool) (string, error) {
	var name string
	err := s.withLease(ctx, "filename", func() error {
		var err error
		name, err = s.filename(ctx, includePath)
		return err
	})
	return name, err
}

func (s *Service) filename(ctx context.Context, includePath bool) (string, error) {
	raw, err := s.query(ctx, oapi.GetModelFilename, includePath)
	if err != nil {
		return "", err
	}
	name, err := cast.ToStringE(raw)
	if err != nil {
		return "", s.malformed(ctx, oapi.GetModelFilename, raw, err)
	}
	return name, nil
}

// Save writes the model to path, or to its current file when path is empty.
func (s *Service) Save(ctx context.Context, path string) error {
	return s.withLease(ctx, "save", func() error {
		_, err := s.call(ctx, oapi.FileSave, path)
		s.recordModel(ctx, ActionSave, path, err)
		if err == nil {
			logging.FromContext(ctx).Info("model saved", "path", path)
		}
		return err
	})
}

// Version returns the application's program version.
func (s *Service) Version(ctx context.Context) (string, error) {
	var v string
	err := s.withLease(ctx, "version", func() error {
		var err error
		v, err = s.version(ctx)
		return err
	})
	return v, err
}

func (s *Service) version(ctx context.Context) (string, error) {
	payload, err := s.call(ctx, oapi.GetVersion)
	if err != nil {
		return "", err
	}
	v, err := oapi.DecodeVersion(payload)
	if err != nil {
		return "", s.malformed(ctx, oapi.GetVersion, payload, err)
	}
	return v, nil
}

// APIVersion returns the version number of the automation interface.
func (s *Service) APIVersion(ctx context.Context) (float64, error) {
	var v float64
	err := s.withLease(ctx, "version", func() error {
		var err error
		v, err = s.apiVersion(ctx)
		return err
	})
	return v, err
}

func (s *Service) apiVersion(ctx context.Context) (float64, error) {
	raw, err := s.query(ctx, oapi.GetOAPIVersionNumber)
	if err != nil {
		return 0, err
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, s.malformed(ctx, oapi.GetOAPIVersionNumber, raw, err)
	}
	return v, nil
}

// MergeTolerance returns the auto-merge tolerance in present units.
func (s *Service) MergeTolerance(ctx context.Context) (float64, error) {
	var tol float64
	err := s.withLease(ctx, "merge tolerance", func() error {
		var err error
		tol, err = s.mergeTolerance(ctx)
		return err
	})
	return tol, err
}

func (s *Service) mergeTolerance(ctx context.Context) (float64, error) {
	payload, err := s.call(ctx, oapi.GetMergeTol)
	if err != nil {
		return 0, err
	}
	tol, err := cast.ToFloat64E(payload)
	if err != nil {
		return 0, s.malformed(ctx, oapi.GetMergeTol, payload, err)
	}
	return tol, nil
}

// SetMergeTolerance sets the auto-merge tolerance in present units.
func (s *Service) SetMergeTolerance(ctx context.Context, tol float64) error {
	return s.withLease(ctx, "merge tolerance", func() error {
		_, err := s.call(ctx, oapi.SetMergeTol, tol)
		s.recordModel(ctx, ActionModel, fmt.Sprintf("merge tolerance %g", tol), err)
		return err
	})
}

// ProjectInfo returns the model's project information items.
func (s *Service) ProjectInfo(ctx context.Context) ([]oapi.ProjectItem, error) {
	var items []oapi.ProjectItem
	err := s.withLease(ctx, "project info", func() error {
		payload, err := s.call(ctx, oapi.GetProjectInfo)
		if err != nil {
			return err
		}
		items, err = oapi.DecodeProjectInfo(payload)
		if err != nil {
			return s.malformed(ctx, oapi.GetProjectInfo, payload, err)
		}
		return nil
	})
	return items, err
}

// SetProjectInfo sets one project information item.
func (s *Service) SetProjectInfo(ctx context.Context, item, data string) error {
	return s.withLease(ctx, "project info", func() error {
		_, err := s.call(ctx, oapi.SetProjectInfo, item, data)
		s.recordModel(ctx, ActionModel, "project info "+item, err)
		return err
	})
}

// UserComment returns the model's user comments.
func (s *Service) UserComment(ctx context.Context) (string, error) {
	var comment string
	err := s.withLease(ctx, "comment", func() error {
		payload, err := s.call(ctx, oapi.GetUserComment)
		if err != nil {
			return err
		}
		comment, err = cast.ToStringE(payload)
		if err != nil {
			return s.malformed(ctx, oapi.GetUserComment, payload, err)
		}
		return nil
	})
	return comment, err
}

// SetUserComment replaces the user comments, or appends to them when
// replace is false.
func (s *Service) SetUserComment(ctx context.Context, comment string, replace bool) error {
	return s.withLease(ctx, "comment", func() error {
		_, err := s.call(ctx, oapi.SetUserComment, comment, 1, replace)
		s.recordModel(ctx, ActionModel, "user comment", err)
		return err
	})
}

// RefreshView redraws every model window.
func (s *Service) RefreshView(ctx context.Context) error {
	return s.withLease(ctx, "refresh", func() error {
		_, err := s.call(ctx, oapi.RefreshView, 0, false)
		return err
	})
}

func (s *Service) recordModel(ctx context.Context, action JournalAction, message string, err error) {
	entry := JournalEntry{Action: action, Message: message, Success: err == nil}
	if err != nil {
		entry.Message = err.Error()
	}
	s.record(ctx, entry)
}
