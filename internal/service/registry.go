package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trackersms/internal/domain"
	"trackersms/internal/store"
	"trackersms/internal/util"
)

const (
	msgModelNotFound   = "Model not found"
	msgCommandNotFound = "Command not found"
	msgModelExists     = "Model name already exists"
	msgCommandExists   = "Command already exists for this model"
)

// Registry manages device models and their commands.
type Registry struct {
	Store RegistryStore
	Now   func() time.Time
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return util.NowUTC()
}

func (r *Registry) ListModels(ctx context.Context) ([]domain.DeviceModel, error) {
	return r.Store.ListModels(ctx)
}

func (r *Registry) GetModel(ctx context.Context, id int64) (domain.DeviceModel, error) {
	m, err := r.Store.GetModel(ctx, id)
	return m, translate(err, msgModelNotFound, msgModelExists)
}

func (r *Registry) CreateModel(ctx context.Context, in domain.ModelInput) (domain.DeviceModel, error) {
	in, err := in.Normalize()
	if err != nil {
		return domain.DeviceModel{}, err
	}
	m, err := r.Store.CreateModel(ctx, in, r.now())
	return m, translate(err, msgModelNotFound, msgModelExists)
}

func (r *Registry) UpdateModel(ctx context.Context, id int64, in domain.ModelInput) (domain.DeviceModel, error) {
	in, err := in.Normalize()
	if err != nil {
		return domain.DeviceModel{}, err
	}
	m, err := r.Store.UpdateModel(ctx, id, in, r.now())
	return m, translate(err, msgModelNotFound, msgModelExists)
}

// DeleteModel refuses to remove a model that still has commands.
func (r *Registry) DeleteModel(ctx context.Context, id int64) error {
	if _, err := r.Store.GetModel(ctx, id); err != nil {
		return translate(err, msgModelNotFound, msgModelExists)
	}
	n, err := r.Store.CountCommands(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.Conflict(fmt.Sprintf("Cannot delete model with %d associated commands", n))
	}
	return translate(r.Store.DeleteModel(ctx, id), msgModelNotFound, msgModelExists)
}

func (r *Registry) ListCommands(ctx context.Context) ([]domain.Command, error) {
	return r.Store.ListCommands(ctx)
}

func (r *Registry) ListModelCommands(ctx context.Context, modelID int64) ([]domain.Command, error) {
	if _, err := r.Store.GetModel(ctx, modelID); err != nil {
		return nil, translate(err, msgModelNotFound, msgModelExists)
	}
	return r.Store.ListCommandsByModel(ctx, modelID)
}

func (r *Registry) GetCommand(ctx context.Context, id int64) (domain.Command, error) {
	c, err := r.Store.GetCommand(ctx, id)
	return c, translate(err, msgCommandNotFound, msgCommandExists)
}

func (r *Registry) CreateCommand(ctx context.Context, in domain.CommandInput) (domain.Command, error) {
	if in.ModelID <= 0 {
		return domain.Command{}, domain.Validation("Model ID is required", nil)
	}
	in, err := in.Normalize()
	if err != nil {
		return domain.Command{}, err
	}
	c, err := r.Store.CreateCommand(ctx, in, r.now())
	// A missing reference means the model vanished, possibly mid-request.
	return c, translate(err, msgModelNotFound, msgCommandExists)
}

func (r *Registry) UpdateCommand(ctx context.Context, id int64, in domain.CommandInput) (domain.Command, error) {
	in, err := in.Normalize()
	if err != nil {
		return domain.Command{}, err
	}
	c, err := r.Store.UpdateCommand(ctx, id, in, r.now())
	return c, translate(err, msgCommandNotFound, msgCommandExists)
}

func (r *Registry) DeleteCommand(ctx context.Context, id int64) error {
	return translate(r.Store.DeleteCommand(ctx, id), msgCommandNotFound, msgCommandExists)
}

// translate maps store sentinels to domain errors. Other errors pass through
// and surface as internal failures.
func translate(err error, notFound, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrMissingReference):
		return domain.NotFound(notFound)
	case errors.Is(err, store.ErrDuplicate):
		return domain.Conflict(conflict)
	default:
		return err
	}
}
