package compose

import (
	"strconv"

	"gnodesk/internal/model"
)

// StepKind orders the actions of a run program.
type StepKind string

const (
	StepResolve StepKind = "resolve"
	StepGrant   StepKind = "grant"
	StepCall    StepKind = "call"
)

// Arg is one positional argument. Numbers are rendered as integer literals
// in a run program; everything is a decimal or plain string in a call.
type Arg struct {
	Value  string
	Number bool
}

func Str(s string) Arg { return Arg{Value: s} }

func Num(n uint64) Arg { return Arg{Value: strconv.FormatUint(n, 10), Number: true} }

// Step is one action of a plan.
//
// A resolve step binds Handle to the asset looked up in its registry, a
// grant step approves the exchange to move Amount (or the NFT's token id)
// through that handle, and a call step invokes Func on PkgPath.
type Step struct {
	Kind    StepKind
	Handle  string
	Asset   model.AssetRef
	Amount  uint64
	PkgPath string
	Func    string
	Args    []Arg
	Returns bool
}

func (s Step) IsNFT() bool { return s.Asset.Kind == model.AssetNFT }

// Plan is the structured form of a composed operation.
type Plan struct {
	Op     Operation
	Shape  Shape
	Caller string
	Send   string
	Steps  []Step
}

// Grants returns the allowance steps in program order.
func (p Plan) Grants() []Step {
	var out []Step
	for _, s := range p.Steps {
		if s.Kind == StepGrant {
			out = append(out, s)
		}
	}
	return out
}

// Call returns the final call step.
func (p Plan) Call() (Step, bool) {
	for i := len(p.Steps) - 1; i >= 0; i-- {
		if p.Steps[i].Kind == StepCall {
			return p.Steps[i], true
		}
	}
	return Step{}, false
}

func argValues(args []Arg) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}
