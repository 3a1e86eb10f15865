package domain

// SessionState — состояние автомата оформления выдачи.
type SessionState string

const (
	StateEmpty      SessionState = "empty"
	StateBuilding   SessionState = "building"
	StateSubmitting SessionState = "submitting"
	StateCompleted  SessionState = "completed"
)
