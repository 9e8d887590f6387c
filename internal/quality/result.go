package quality

// Status is the outcome of a single check.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusWarning Status = "WARNING"
)

// Detail keys. They keep the vocabulary of the reports consumed downstream.
const (
	KeyNulls        = "nulos"
	KeyNullPct      = "pct_nulos"
	KeyActualType   = "tipo_atual"
	KeyExpectedType = "tipo_esperado"
	KeyMin          = "min_valor"
	KeyMax          = "max_valor"
	KeyViolations   = "violacoes"
	KeyDuplicates   = "duplicados"
	KeyPercentage   = "percentagem"
	KeyUnique       = "unicos"
	KeyTotal        = "total"
	KeyNegatives    = "negativos"
	KeyMinDate      = "data_minima"
	KeyMaxDate      = "data_maxima"
	KeyFailures     = "falhas"
	KeyInconsistent = "inconsistencias"
	KeyValidColumns = "colunas_validas"
)

// Result is the outcome of one check.
type Result struct {
	Name    string         `json:"name" yaml:"name"`
	Status  Status         `json:"status" yaml:"status"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details" yaml:"details"`
}

// Passed reports whether the check passed.
func (r Result) Passed() bool { return r.Status == StatusPass }
