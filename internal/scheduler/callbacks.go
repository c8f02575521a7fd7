package scheduler

// Callbacks are hooks for run lifecycle events. Nil hooks are skipped.
type Callbacks struct {
	OnRunStart   func(result *RunResult)
	OnRunSuccess func(result *RunResult)
	// OnRunFailure fires for every failed attempt; result.WillRetry says
	// whether another follows
	OnRunFailure func(result *RunResult)
	// OnRetryExhausted receives every failed attempt of a slot
	OnRetryExhausted func(results []*RunResult)
}

func (c *Callbacks) runStart(r *RunResult) {
	if c != nil && c.OnRunStart != nil {
		c.OnRunStart(r)
	}
}

func (c *Callbacks) runSuccess(r *RunResult) {
	if c != nil && c.OnRunSuccess != nil {
		c.OnRunSuccess(r)
	}
}

func (c *Callbacks) runFailure(r *RunResult) {
	if c != nil && c.OnRunFailure != nil {
		c.OnRunFailure(r)
	}
}

func (c *Callbacks) retryExhausted(results []*RunResult) {
	if c != nil && c.OnRetryExhausted != nil {
		c.OnRetryExhausted(results)
	}
}

// ChainCallbacks combines multiple callback sets
func ChainCallbacks(callbacks ...*Callbacks) *Callbacks {
	return &Callbacks{
		OnRunStart: func(r *RunResult) {
			for _, c := range callbacks {
				c.runStart(r)
			}
		},
		OnRunSuccess: func(r *RunResult) {
			for _, c := range callbacks {
				c.runSuccess(r)
			}
		},
		OnRunFailure: func(r *RunResult) {
			for _, c := range callbacks {
				c.runFailure(r)
			}
		},
		OnRetryExhausted: func(results []*RunResult) {
			for _, c := range callbacks {
				c.retryExhausted(results)
			}
		},
	}
}
