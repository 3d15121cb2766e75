package domain

import "time"

// EvaluateRegistration is the pure registration invariant guard. It decides
// whether a user may register for an event given a consistent snapshot of
// the event and the user's current membership. It performs no I/O.
//
// The store re-validates the capacity and duplicate checks inside its
// atomic mutation; this guard exists for early, cheap rejection and for
// computing decisions against an already-consistent snapshot.
//
// A registration at exactly the deadline instant is accepted; the deadline
// is inclusive.
func EvaluateRegistration(event *Event, alreadyRegistered bool, now time.Time) Decision {
	if event == nil {
		return DecisionEventNotFound
	}
	if !event.RegistrationRequired {
		return DecisionRegistrationNotRequired
	}
	if event.RegistrationDeadline != nil && now.After(*event.RegistrationDeadline) {
		return DecisionDeadlinePassed
	}
	if alreadyRegistered {
		return DecisionAlreadyRegistered
	}
	if event.Capacity > 0 && event.RegistrationCount >= event.Capacity {
		return DecisionEventFull
	}
	return DecisionRegistered
}

// EvaluateUnregistration decides whether a user may unregister. It is not
// gated on the registration deadline: unregistration is allowed any time
// before the event starts.
func EvaluateUnregistration(event *Event, registered bool, now time.Time) Decision {
	if event == nil {
		return DecisionEventNotFound
	}
	if event.StartsAt != nil && now.After(*event.StartsAt) {
		return DecisionDeadlinePassed
	}
	if !registered {
		return DecisionNotRegistered
	}
	return DecisionUnregistered
}
