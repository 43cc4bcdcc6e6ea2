package converter

// MatchReason explains the outcome of a matching attempt. The
// matcher never logs; callers decide what a reason is worth.
type MatchReason int

const (
	MatchOK MatchReason = iota
	ReasonNotMonitored
	ReasonNoLocation
	ReasonNoMonitoredCall
	ReasonNonCommercial
	ReasonUnknownDirection
	ReasonNoCandidates
	ReasonNoCallMatch
	ReasonNoAimedTime
	ReasonOverTolerance
)

func (r MatchReason) String() string {
	switch r {
	case MatchOK:
		return "ok"
	case ReasonNotMonitored:
		return "not_monitored"
	case ReasonNoLocation:
		return "no_location"
	case ReasonNoMonitoredCall:
		return "no_monitored_call"
	case ReasonNonCommercial:
		return "non_commercial"
	case ReasonUnknownDirection:
		return "unknown_direction"
	case ReasonNoCandidates:
		return "no_candidates"
	case ReasonNoCallMatch:
		return "no_call_match"
	case ReasonNoAimedTime:
		return "no_aimed_time"
	case ReasonOverTolerance:
		return "over_tolerance"
	}
	return "unknown"
}
