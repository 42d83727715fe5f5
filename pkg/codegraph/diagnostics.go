package codegraph

// Severity is a Diagnostic's level.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic reports one build or validation finding, tagged with a stable
// CGxxxx code (spec §4.6 "CodeGraphError").
type Diagnostic struct {
	Severity   Severity
	Code       string
	Message    string
	Path       string
	LogicalKey string
}

func errorDiag(code, message string) Diagnostic {
	return Diagnostic{Severity: SeverityError, Code: code, Message: message}
}

func warningDiag(code, message string) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Message: message}
}

func infoDiag(code, message string) Diagnostic {
	return Diagnostic{Severity: SeverityInfo, Code: code, Message: message}
}

func (d Diagnostic) withPath(path string) Diagnostic {
	d.Path = path
	return d
}

func (d Diagnostic) withLogicalKey(key string) Diagnostic {
	d.LogicalKey = key
	return d
}

// ValidationResult is the outcome of validating a document against the
// codegraph.v1 profile (spec §4.6 "Validation (CG1xxx)").
type ValidationResult struct {
	Valid       bool
	Diagnostics []Diagnostic
}

// HasErrors reports whether diagnostics contains any Error-severity entry.
func HasErrors(diagnostics []Diagnostic) bool {
	for _, d := range diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
