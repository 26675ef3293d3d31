package warehouse

import "fmt"

// Stage names reported in persistence faults, in resolution order.
const (
	StageCompany     = "company"
	StageRole        = "role"
	StageDate        = "date"
	StageCurrency    = "currency"
	StageInstrument  = "instrument"
	StagePerson      = "person"
	StageTransaction = "transaction"
)

// Fault reports a failed lookup or insert, carrying the resolution stage it
// happened in and the underlying cause.
type Fault struct {
	Stage string
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("warehouse %s: %v", f.Stage, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
