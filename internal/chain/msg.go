package chain

import (
	"encoding/json"
	"strconv"
)

const (
	typeMsgCall = "/vm.m_call"
	typeMsgRun  = "/vm.m_run"
)

// Message is one VM message carried by a transaction.
type Message interface {
	Type() string
}

// CallMessage invokes one exported realm function with positional string
// arguments.
type CallMessage struct {
	Caller  string   `json:"caller"`
	Send    string   `json:"send"`
	PkgPath string   `json:"pkg_path"`
	Func    string   `json:"func"`
	Args    []string `json:"args"`
}

func (CallMessage) Type() string { return typeMsgCall }

// MarshalJSON adds the amino type tag expected by the node.
func (m CallMessage) MarshalJSON() ([]byte, error) {
	type plain CallMessage
	args := m.Args
	if args == nil {
		args = []string{}
	}
	p := plain(m)
	p.Args = args
	return json.Marshal(struct {
		Type string `json:"@type"`
		plain
	}{Type: typeMsgCall, plain: p})
}

// File is one source file of a run package.
type File struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Package is the ephemeral program executed by a run message.
type Package struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Files []File `json:"files"`
}

// RunMessage executes a generated package main program as the caller.
type RunMessage struct {
	Caller  string  `json:"caller"`
	Send    string  `json:"send"`
	Package Package `json:"package"`
}

func (RunMessage) Type() string { return typeMsgRun }

func (m RunMessage) MarshalJSON() ([]byte, error) {
	type plain RunMessage
	return json.Marshal(struct {
		Type string `json:"@type"`
		plain
	}{Type: typeMsgRun, plain: plain(m)})
}

// Source returns the body of the program's main file.
func (m RunMessage) Source() string {
	for _, f := range m.Package.Files {
		if f.Name == "main.gno" {
			return f.Body
		}
	}
	return ""
}

// Fee is the gas budget attached to a transaction.
type Fee struct {
	GasWanted int64  `json:"gas_wanted"`
	GasFee    string `json:"gas_fee"`
}

// NewFee formats a fee amount and denom the way the node expects, e.g. "1000000ugnot".
func NewFee(amount uint64, denom string, gasWanted int64) Fee {
	fee := Fee{GasWanted: gasWanted}
	if denom != "" {
		fee.GasFee = strconv.FormatUint(amount, 10) + denom
	}
	return fee
}

// Tx is an unsigned transaction handed to the signer.
type Tx struct {
	Msgs []Message `json:"msg"`
	Fee  Fee       `json:"fee"`
	Memo string    `json:"memo"`
}

// Result is the outcome reported for a broadcast transaction. Code zero is
// success.
type Result struct {
	Code uint32 `json:"code"`
	Log  string `json:"log"`
	Hash string `json:"hash"`
}
