package services

type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// PlannerError wraps a failure to obtain a usable plan from the model.
type PlannerError struct{ Message string }

func (e *PlannerError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }
