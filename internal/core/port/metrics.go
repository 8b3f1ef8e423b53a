package port

// MetricsRecorder receives business-level counters from the use cases.
type MetricsRecorder interface {
	RegistrationCompleted(outcome string)
	VerificationAttempted(outcome string)
	MessageReceived()
	MessageRejected(reason string)
	MessageDeleted()
	AcceptanceChanged(accepting bool)
}
