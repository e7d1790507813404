package metrics

// Noop satisfies the business recorder interfaces when metrics are disabled.
type Noop struct{}

func (Noop) AppointmentCreated() {}
func (Noop) ConflictDetected(string) {}
func (Noop) StatusChanged(string, string) {}
func (Noop) PackageDeducted(string) {}
func (Noop) PaymentRecorded() {}
