package domain

// AdmittedPosition is the sentinel rank reported for users who have
// cleared the admission gate.
const AdmittedPosition = 0

// QueuePosition is a user's standing in an event's waiting room.
// Position is 1-based for waiting users and AdmittedPosition once admitted.
type QueuePosition struct {
	UserID   string
	EventID  string
	Position int
	Admitted bool
}

// QueueStatus summarizes one event's waiting room.
type QueueStatus struct {
	EventID       string
	TotalWaiting  int64
	TotalAdmitted int64
}
