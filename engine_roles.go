package spellauth

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrEthical07/spellauth/internal/flows"
	"github.com/MrEthical07/spellauth/store"
)

// ReconcileRoles makes the role store match the canonical role table:
// missing roles are created, drifted masks rewritten. It is idempotent and
// safe to run concurrently from several processes. Run it once at bootstrap.
func (e *Engine) ReconcileRoles(ctx context.Context) (ReconcileReport, error) {
	if e == nil || e.roles == nil || e.roleDefs == nil {
		return ReconcileReport{}, ErrRoleBackendUnavailable
	}

	res, err := flows.RunReconcileRoles(ctx, e.roleReconcileDeps())
	report := ReconcileReport{
		Created:   res.Created,
		Updated:   res.Updated,
		Unchanged: res.Unchanged,
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "role reconciliation failed", "error", err)
		return report, err
	}

	e.logger.InfoContext(ctx, "roles reconciled",
		"created", report.Created,
		"updated", report.Updated,
		"unchanged", len(report.Unchanged),
	)
	return report, nil
}

func (e *Engine) roleReconcileDeps() flows.RoleReconcileDeps {
	return flows.RoleReconcileDeps{
		Definitions:           e.roleDefs.Definitions(),
		GetRoleByName:         e.roles.GetRoleByName,
		CreateRole:            e.roles.CreateRole,
		UpdateRolePermissions: e.roles.UpdateRolePermissions,
		NewRoleID:             uuid.NewString,
		MetricInc:             func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:             e.emitAudit,
		Event:                 auditEventRoleReconciled,
		Metrics: flows.RoleReconcileMetrics{
			RoleCreated: int(MetricRoleCreated),
			RoleUpdated: int(MetricRoleUpdated),
		},
		Errors: flows.RoleReconcileErrors{
			BackendUnavailable: ErrRoleBackendUnavailable,
			Conflict:           store.ErrConstraintViolation,
			NotFound:           store.ErrRoleNotFound,
		},
	}
}
