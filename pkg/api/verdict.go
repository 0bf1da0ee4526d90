package api

// Verdict is the typed outcome of one sandboxed execution or of the static
// safety pre-check.
type Verdict string

const (
	VerdictPass    Verdict = "PASS"
	VerdictFail    Verdict = "FAIL"
	VerdictTimeout Verdict = "TIMEOUT"
	VerdictError   Verdict = "ERROR"
	VerdictUnsafe  Verdict = "UNSAFE"
)

// Decided reports whether the function produced a boolean answer, i.e. the
// verdict is PASS or FAIL.
func (v Verdict) Decided() bool {
	return v == VerdictPass || v == VerdictFail
}

// String implements fmt.Stringer.
func (v Verdict) String() string {
	return string(v)
}
