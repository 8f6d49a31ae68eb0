package attendance

// Countdown is the QR expiry timer. It holds no clock of its own: each Tick is
// one second, driven by Registry.Run in production and called directly in tests.
// It is owned by a Manager and guarded by the manager's lock.
type Countdown struct {
	remaining int
	running   bool
}

// Start replaces any running countdown with a fresh one.
func (c *Countdown) Start(seconds int) {
	if seconds <= 0 {
		c.Cancel()
		return
	}
	c.remaining = seconds
	c.running = true
}

// Cancel stops the countdown without firing.
func (c *Countdown) Cancel() {
	c.remaining = 0
	c.running = false
}

// Tick advances one second and reports whether the countdown reached zero on this tick.
func (c *Countdown) Tick() bool {
	if !c.running {
		return false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.Cancel()
		return true
	}
	return false
}

func (c *Countdown) Remaining() int { return c.remaining }
func (c *Countdown) Running() bool  { return c.running }
