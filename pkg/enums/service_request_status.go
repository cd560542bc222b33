package enums

// ServiceRequestStatus tracks the lifecycle of a client repair request.
type ServiceRequestStatus string

const (
	ServiceRequestStatusPending    ServiceRequestStatus = "pending"
	ServiceRequestStatusNotified   ServiceRequestStatus = "notified"
	ServiceRequestStatusAssigned   ServiceRequestStatus = "assigned"
	ServiceRequestStatusInProgress ServiceRequestStatus = "in_progress"
	ServiceRequestStatusCompleted  ServiceRequestStatus = "completed"
	ServiceRequestStatusCancelled  ServiceRequestStatus = "cancelled"
)

// DispatchableStatuses are the states in which technicians may still be
// offered or claim the request.
var DispatchableStatuses = []ServiceRequestStatus{
	ServiceRequestStatusPending,
	ServiceRequestStatusNotified,
}

// String implements fmt.Stringer.
func (s ServiceRequestStatus) String() string {
	return string(s)
}

// Dispatchable reports whether technicians may still be offered the request.
func (s ServiceRequestStatus) Dispatchable() bool {
	for _, candidate := range DispatchableStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
