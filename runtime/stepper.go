package runtime

import (
	"context"
	"math"

	"go.uber.org/zap"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/errors"
)

// divergenceLimit is the number of consecutive divergent steps that move an
// instance from Unstable to the terminal Failed state.
const divergenceLimit = 2

// Stepper advances instances one bounded timestep at a time. It owns the
// status machine: solver failures and traps are terminal, a divergent step
// marks the instance Unstable, and divergenceLimit consecutive divergent
// steps escalate to Failed. A clean step resets the divergence streak but
// never moves an instance backward out of Unstable; only Reset does that.
type Stepper struct {
	log *zap.Logger
}

// NewStepper creates a stepper. A nil logger disables logging.
func NewStepper(log *zap.Logger) *Stepper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stepper{log: log}
}

// Step advances inst by dt simulated seconds.
//
// A non-positive dt fails with InvalidTimestep before any native code runs,
// leaving time and step counters untouched. When the native step completes,
// simulated time advances even if the produced values diverged; when it
// does not complete (trap or solver failure), time does not advance and the
// instance is Failed.
func (s *Stepper) Step(ctx context.Context, inst *Instance, dt float64) error {
	if dt <= 0 || math.IsNaN(dt) {
		return errors.InvalidTimestep(dt).WithInstance(inst.id)
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	if err := inst.guard(); err != nil {
		return err
	}

	code, err := inst.native.Step(ctx, dt)
	if err != nil {
		inst.status = simruntime.Failed
		s.log.Warn("native step trapped",
			zap.String("instance", inst.id),
			zap.Error(err))
		return &errors.Error{
			Kind:     errors.KindStepFailure,
			Instance: inst.id,
			Detail:   "native step trapped",
			Cause:    err,
		}
	}
	if code != 0 {
		inst.status = simruntime.Failed
		s.log.Warn("solver failure",
			zap.String("instance", inst.id),
			zap.Int32("status", code))
		return errors.StepFailed(inst.id, code)
	}

	// The native step ran to completion, so simulated time advances even
	// when the values it produced turn out to be divergent.
	inst.simTime += dt
	inst.steps++

	diverged, scanErr := s.scanFinite(ctx, inst)
	if scanErr != nil {
		return scanErr
	}
	if len(diverged) == 0 {
		inst.divergeStreak = 0
		return nil
	}

	inst.divergeStreak++
	if inst.divergeStreak >= divergenceLimit {
		inst.status = simruntime.Failed
	} else {
		inst.status = simruntime.Unstable
	}
	s.log.Warn("divergent step",
		zap.String("instance", inst.id),
		zap.Strings("variables", diverged),
		zap.Int("streak", inst.divergeStreak),
		zap.String("status", inst.status.String()))
	return errors.Divergence(inst.id, diverged)
}

// scanFinite checks every declared Real variable for NaN or Inf and returns
// the names of the offenders. Callers hold inst.mu.
func (s *Stepper) scanFinite(ctx context.Context, inst *Instance) ([]string, error) {
	var diverged []string
	for _, v := range inst.desc.vars {
		if v.Type != simruntime.Real {
			continue
		}
		f, err := inst.native.GetReal(ctx, v.Index)
		if err != nil {
			inst.status = simruntime.Failed
			return nil, errors.NativeFault(inst.id, "divergence scan trapped", err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			diverged = append(diverged, v.Name)
		}
	}
	return diverged, nil
}
