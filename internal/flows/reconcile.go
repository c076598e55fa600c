package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/store"
)

type RoleReconcileResult struct {
	Created   []string
	Updated   []string
	Unchanged []string
}

type RoleReconcileMetrics struct {
	RoleCreated int
	RoleUpdated int
}

type RoleReconcileErrors struct {
	BackendUnavailable error
	Conflict           error
	NotFound           error
}

type RoleReconcileDeps struct {
	Definitions []permission.Definition

	GetRoleByName         func(context.Context, string) (store.RoleRecord, error)
	CreateRole            func(context.Context, store.RoleRecord) error
	UpdateRolePermissions func(context.Context, string, permission.Mask) error
	NewRoleID             func() string

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Event   string
	Metrics RoleReconcileMetrics
	Errors  RoleReconcileErrors
}

// RunReconcileRoles brings the stored role table in line with
// deps.Definitions. Missing roles are created and roles whose mask drifted
// are rewritten; names and IDs are never changed.
//
// A create that loses a race to a concurrent reconciler (Conflict) re-reads
// the winner's row and continues, so concurrent runs converge on exactly one
// row per name. Running it twice is a no-op the second time.
func RunReconcileRoles(ctx context.Context, deps RoleReconcileDeps) (RoleReconcileResult, error) {
	normalizeRoleReconcileDeps(&deps)

	var result RoleReconcileResult
	if deps.GetRoleByName == nil || deps.CreateRole == nil || deps.UpdateRolePermissions == nil {
		return result, deps.Errors.BackendUnavailable
	}

	for _, def := range deps.Definitions {
		rec, err := deps.GetRoleByName(ctx, def.Name)
		if errors.Is(err, deps.Errors.NotFound) {
			rec = store.RoleRecord{
				ID:          deps.NewRoleID(),
				Name:        def.Name,
				Permissions: def.Permissions,
			}
			err = deps.CreateRole(ctx, rec)
			if err == nil {
				result.Created = append(result.Created, def.Name)
				deps.MetricInc(deps.Metrics.RoleCreated)
				deps.EmitAudit(ctx, deps.Event, true, "", nil, reconcileMeta(def, "created"))
				continue
			}
			if !errors.Is(err, deps.Errors.Conflict) {
				return result, fmt.Errorf("%w: create role %q: %w", deps.Errors.BackendUnavailable, def.Name, err)
			}
			rec, err = deps.GetRoleByName(ctx, def.Name)
		}
		if err != nil {
			return result, fmt.Errorf("%w: lookup role %q: %w", deps.Errors.BackendUnavailable, def.Name, err)
		}

		if rec.Permissions == def.Permissions {
			result.Unchanged = append(result.Unchanged, def.Name)
			continue
		}

		if err := deps.UpdateRolePermissions(ctx, rec.ID, def.Permissions); err != nil {
			return result, fmt.Errorf("%w: update role %q: %w", deps.Errors.BackendUnavailable, def.Name, err)
		}
		result.Updated = append(result.Updated, def.Name)
		deps.MetricInc(deps.Metrics.RoleUpdated)
		deps.EmitAudit(ctx, deps.Event, true, "", nil, reconcileMeta(def, "updated"))
	}

	return result, nil
}

func reconcileMeta(def permission.Definition, action string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{
			"role":        def.Name,
			"action":      action,
			"permissions": fmt.Sprintf("0x%02x", def.Permissions.Raw()),
		}
	}
}

func normalizeRoleReconcileDeps(deps *RoleReconcileDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.Errors.BackendUnavailable == nil {
		deps.Errors.BackendUnavailable = errors.New("role backend unavailable")
	}
	if deps.Errors.Conflict == nil {
		deps.Errors.Conflict = store.ErrConstraintViolation
	}
	if deps.Errors.NotFound == nil {
		deps.Errors.NotFound = store.ErrRoleNotFound
	}
}
