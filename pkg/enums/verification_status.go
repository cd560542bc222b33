package enums

// VerificationStatus marks whether a technician passed identity review.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
)

func (v VerificationStatus) String() string {
	return string(v)
}
