package metrics

// Collector wraps metrics and provides helper methods with pre-filled labels.
// A nil *Collector is valid and records nothing.
type Collector struct {
	run string
}

// NewCollector creates a new Collector for the given run.
func NewCollector(run string) *Collector {
	return &Collector{run: run}
}

// Run returns the run label.
func (c *Collector) Run() string {
	if c == nil {
		return ""
	}
	return c.run
}

// AddChunks adds n to the queued chunks counter.
func (c *Collector) AddChunks(n int) {
	if c == nil {
		return
	}
	ChunksTotal.WithLabelValues(c.run).Add(float64(n))
}

// IncJobsDispatched increments the dispatched jobs counter.
func (c *Collector) IncJobsDispatched() {
	if c == nil {
		return
	}
	JobsDispatchedTotal.WithLabelValues(c.run).Inc()
}

// IncResultsStored increments the stored results counter.
func (c *Collector) IncResultsStored() {
	if c == nil {
		return
	}
	ResultsStoredTotal.WithLabelValues(c.run).Inc()
}

// IncSessionErrors increments the session errors counter.
func (c *Collector) IncSessionErrors() {
	if c == nil {
		return
	}
	SessionErrorsTotal.WithLabelValues(c.run).Inc()
}

// AddChunksRequeued adds n to the requeued chunks counter.
func (c *Collector) AddChunksRequeued(n int) {
	if c == nil || n == 0 {
		return
	}
	ChunksRequeuedTotal.WithLabelValues(c.run).Add(float64(n))
}

// SessionOpened increments the active sessions gauge.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	ActiveSessions.WithLabelValues(c.run).Inc()
}

// SessionClosed decrements the active sessions gauge.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	ActiveSessions.WithLabelValues(c.run).Dec()
}

// SetCompletedChunks sets the completed chunks gauge.
func (c *Collector) SetCompletedChunks(count int) {
	if c == nil {
		return
	}
	CompletedChunks.WithLabelValues(c.run).Set(float64(count))
}

// ObserveUpsertDuration records a store write duration observation.
func (c *Collector) ObserveUpsertDuration(seconds float64) {
	if c == nil {
		return
	}
	UpsertDuration.WithLabelValues(c.run).Observe(seconds)
}
