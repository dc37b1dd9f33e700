package judge

// StatusID enumerates the verdict states reported by the judge.
type StatusID int

const (
	StatusUnknown             StatusID = 0
	StatusInQueue             StatusID = 1
	StatusProcessing          StatusID = 2
	StatusAccepted            StatusID = 3
	StatusWrongAnswer         StatusID = 4
	StatusTimeLimitExceeded   StatusID = 5
	StatusCompilationError    StatusID = 6
	StatusRuntimeErrorSIGSEGV StatusID = 7
	StatusRuntimeErrorSIGXFSZ StatusID = 8
	StatusRuntimeErrorSIGFPE  StatusID = 9
	StatusRuntimeErrorSIGABRT StatusID = 10
	StatusRuntimeErrorNZEC    StatusID = 11
	StatusRuntimeErrorOther   StatusID = 12
	StatusInternalError       StatusID = 13
	StatusExecFormatError     StatusID = 14
)

// Kind groups judge statuses into the classes the evaluation engine cares about.
type Kind string

const (
	KindPending           Kind = "pending"
	KindAccepted          Kind = "accepted"
	KindWrongAnswer       Kind = "wrong_answer"
	KindTimeLimitExceeded Kind = "time_limit_exceeded"
	KindCompilationError  Kind = "compilation_error"
	KindRuntimeError      Kind = "runtime_error"
	KindJudgeError        Kind = "judge_error"
)

var statusDescriptions = map[StatusID]string{
	StatusInQueue:             "In Queue",
	StatusProcessing:          "Processing",
	StatusAccepted:            "Accepted",
	StatusWrongAnswer:         "Wrong Answer",
	StatusTimeLimitExceeded:   "Time Limit Exceeded",
	StatusCompilationError:    "Compilation Error",
	StatusRuntimeErrorSIGSEGV: "Runtime Error (SIGSEGV)",
	StatusRuntimeErrorSIGXFSZ: "Runtime Error (SIGXFSZ)",
	StatusRuntimeErrorSIGFPE:  "Runtime Error (SIGFPE)",
	StatusRuntimeErrorSIGABRT: "Runtime Error (SIGABRT)",
	StatusRuntimeErrorNZEC:    "Runtime Error (NZEC)",
	StatusRuntimeErrorOther:   "Runtime Error (Other)",
	StatusInternalError:       "Internal Error",
	StatusExecFormatError:     "Exec Format Error",
}

// Terminal reports whether the judge has finished processing the execution.
func (s StatusID) Terminal() bool {
	return s >= StatusAccepted
}

// Accepted reports whether the execution completed with the accepted verdict.
func (s StatusID) Accepted() bool {
	return s == StatusAccepted
}

// Kind classifies the status. Unknown terminal codes are treated as judge errors
// so that a change in the judge's taxonomy never reads as an accepted run.
func (s StatusID) Kind() Kind {
	switch {
	case !s.Terminal():
		return KindPending
	case s == StatusAccepted:
		return KindAccepted
	case s == StatusWrongAnswer:
		return KindWrongAnswer
	case s == StatusTimeLimitExceeded:
		return KindTimeLimitExceeded
	case s == StatusCompilationError:
		return KindCompilationError
	case s >= StatusRuntimeErrorSIGSEGV && s <= StatusRuntimeErrorOther:
		return KindRuntimeError
	default:
		return KindJudgeError
	}
}

// String returns the canonical description for the status.
func (s StatusID) String() string {
	if desc, ok := statusDescriptions[s]; ok {
		return desc
	}
	return "Unknown"
}
