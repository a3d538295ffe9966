package saga

// Status represents the lifecycle state of an orchestrated saga
type Status string

const (
	StatusStarted      Status = "started"
	StatusInProgress   Status = "in_progress"
	StatusCompleted    Status = "completed"
	StatusCompensating Status = "compensating"
	StatusFailed       Status = "failed"
)

var allStatuses = map[string]Status{
	StatusStarted.String():      StatusStarted,
	StatusInProgress.String():   StatusInProgress,
	StatusCompleted.String():    StatusCompleted,
	StatusCompensating.String(): StatusCompensating,
	StatusFailed.String():       StatusFailed,
}

// ParseStatus converts a stored value into a Status
func ParseStatus(value string) (Status, bool) {
	status, ok := allStatuses[value]
	return status, ok
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is expected
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ActiveStatuses are the statuses a recovery sweep has to look at
func ActiveStatuses() []Status {
	return []Status{StatusStarted, StatusInProgress, StatusCompensating}
}

// EventType identifies an entry in a saga's audit log
type EventType string

const (
	EventStepStarted           EventType = "saga.step.started"
	EventStepCompleted         EventType = "saga.step.completed"
	EventStepFailed            EventType = "saga.step.failed"
	EventCompensationStarted   EventType = "saga.compensation.started"
	EventCompensationCompleted EventType = "saga.compensation.completed"
	EventCompensationFailed    EventType = "saga.compensation.failed"
	EventSagaCompleted         EventType = "saga.completed"
	EventSagaFailed            EventType = "saga.failed"
)

func (t EventType) String() string {
	return string(t)
}
