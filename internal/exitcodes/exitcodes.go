package exitcodes

// Exit codes for tempsweep commands.
// Scripts and service managers rely on these values.
const (
	Success         = 0 // Successful execution
	Failure         = 1 // Operation ran but reported an error (e.g. delete failed)
	InvalidConfig   = 2 // Configuration file or flags invalid or missing
	SafetyViolation = 3 // Safety validator refused a path
	RuntimeError    = 4 // Runtime error during execution
)
