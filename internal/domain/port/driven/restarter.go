package driven

// Restarter asks the process supervisor to restart the service so it picks
// up new configuration. Restart returns immediately; the process exits later.
type Restarter interface {
	Restart(reason string)
}
