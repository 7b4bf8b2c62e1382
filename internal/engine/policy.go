package engine

import "time"

const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultRetries      = 3
)

// WaitPolicy controls how long and how often the engine re-attempts an interaction.
// Retries is the total number of attempts made by Click and Type when the element
// goes stale between locate and act.
type WaitPolicy struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Retries      int
}

// DefaultWaitPolicy returns the 10s / 500ms / 3 attempts policy.
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
		Retries:      DefaultRetries,
	}
}

// normalized fills zero or negative fields with defaults so a partially specified
// policy is always usable.
func (p WaitPolicy) normalized() WaitPolicy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.PollInterval > p.Timeout {
		p.PollInterval = p.Timeout
	}
	if p.Retries <= 0 {
		p.Retries = DefaultRetries
	}
	return p
}

// WaitOption overrides parts of the engine's policy for a single call.
type WaitOption func(*WaitPolicy)

// WithTimeout overrides the wait timeout.
func WithTimeout(d time.Duration) WaitOption {
	return func(p *WaitPolicy) { p.Timeout = d }
}

// WithPollInterval overrides the polling interval.
func WithPollInterval(d time.Duration) WaitOption {
	return func(p *WaitPolicy) { p.PollInterval = d }
}

// WithRetries overrides the attempt budget for stale-element recovery.
func WithRetries(n int) WaitOption {
	return func(p *WaitPolicy) { p.Retries = n }
}

// WithPolicy replaces the whole policy.
func WithPolicy(policy WaitPolicy) WaitOption {
	return func(p *WaitPolicy) { *p = policy }
}

func (p WaitPolicy) with(opts []WaitOption) WaitPolicy {
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	return p.normalized()
}
