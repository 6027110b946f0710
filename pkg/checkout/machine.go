package checkout

import (
	"errors"
	"sync"

	"github.com/example/obelisco/pkg/models"
)

// Checkout steps, in order.
const (
	StepShipping = 1
	StepPayment  = 2
	StepReview   = 3

	StepCount = 3
)

var (
	ErrInvalidStep    = errors.New("no such checkout step")
	ErrStepNotReached = errors.New("cannot skip ahead to an unvalidated step")
)

// Machine sequences the checkout form across the fixed linear steps. Fields
// collected per step accumulate into a single field set, so validation and
// review read a plain mapping instead of re-querying the form.
type Machine struct {
	mu               sync.Mutex
	current          int
	highestCompleted int
	fields           models.FieldSet
}

func NewMachine() *Machine {
	return &Machine{
		current: StepShipping,
		fields:  models.FieldSet{},
	}
}

// Current returns the active step.
func (m *Machine) Current() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Completed reports whether the step has been successfully advanced past.
func (m *Machine) Completed(step int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return step >= StepShipping && step <= m.highestCompleted
}

// Advance validates the current step and, on success, merges its fields,
// marks every earlier step completed, and activates target. Advancing is
// strictly one step at a time; on validation failure the machine stays put
// and the error lists all failing fields.
func (m *Machine) Advance(target int, stepFields models.FieldSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if target != m.current+1 || target > StepCount {
		return ErrInvalidStep
	}
	if verr := ValidateStep(m.current, stepFields); verr != nil {
		return verr
	}

	m.fields.Merge(stepFields)
	if target-1 > m.highestCompleted {
		m.highestCompleted = target - 1
	}
	m.current = target
	return nil
}

// GoTo navigates directly to a step without validation. Allowed only for
// steps at or below the highest completed step plus one, so intervening
// steps cannot be skipped.
func (m *Machine) GoTo(target int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if target < StepShipping || target > StepCount {
		return ErrInvalidStep
	}
	if target > m.highestCompleted+1 {
		return ErrStepNotReached
	}
	m.current = target
	return nil
}

// Fields returns a copy of all collected values.
func (m *Machine) Fields() models.FieldSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := models.FieldSet{}
	out.Merge(m.fields)
	return out
}

// Reset returns the machine to step 1 with no collected fields, for a fresh
// checkout after submission.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = StepShipping
	m.highestCompleted = 0
	m.fields = models.FieldSet{}
}
