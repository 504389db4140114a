package guard

// Policy selects how teardown handles a failed deletion attempt.
type Policy string

const (
	// PolicySoft makes exactly one deletion attempt. A failure is
	// reported through the observer and telemetry but otherwise
	// dropped; with Strict enabled the process instead exits with a
	// non-zero status.
	PolicySoft Policy = "soft"

	// PolicyHard retries until the executable is gone, pacing attempts
	// with the configured throttle and backoff. There is no upper bound
	// by default, so Release blocks indefinitely on platforms that lock
	// a running executable: the lock is only dropped when our own
	// process exits, which a retry loop inside that process can never
	// wait out. That hang is the accepted cost of the hard guarantee.
	PolicyHard Policy = "hard"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicySoft || p == PolicyHard
}
