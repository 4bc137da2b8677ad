package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"gnodesk/internal/identity"
)

func testCaller(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	addr, err := identity.EncodeAddress(raw)
	if err != nil {
		t.Fatalf("encode address: %v", err)
	}
	return addr
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--log-level", "error"))
	err = root.Execute()
	return out.String(), err
}

func TestComposeCancelTicketIsDirectCall(t *testing.T) {
	out, err := runCLI(t, "compose", "CancelTicket", "--ticket", "3", "--caller", testCaller(t))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	var view struct {
		Shape   string         `json:"shape"`
		Message map[string]any `json:"message"`
		Source  string         `json:"source"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if view.Shape != "call" || view.Source != "" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Message["func"] != "CancelTicket" || view.Message["@type"] != "/vm.m_call" {
		t.Fatalf("unexpected message: %v", view.Message)
	}
}

func TestComposeTokenTicketRendersProgram(t *testing.T) {
	out, err := runCLI(t, "compose", "createticket",
		"--caller", testCaller(t),
		"--asset-in", "token:gno.land/r/demo/foo20",
		"--asset-out", "coin:ugnot",
		"--amount-in", "1000",
		"--min-out", "900",
	)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	var view struct {
		Shape  string `json:"shape"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if view.Shape != "run" || !strings.Contains(view.Source, "package main") {
		t.Fatalf("expected run message with program, got:\n%s", out)
	}
	if n := strings.Count(view.Source, "Approve("); n != 1 {
		t.Fatalf("expected one allowance grant, got %d:\n%s", n, view.Source)
	}
	grantAt := strings.Index(view.Source, "CallerTeller().Approve(spender, 1000)")
	callAt := strings.Index(view.Source, `exchange.CreateTokenTicket("gno.land/r/demo/foo20", "coin", "ugnot", 1000, 900,`)
	if grantAt < 0 || callAt < grantAt {
		t.Fatalf("grant must precede the ticket call:\n%s", view.Source)
	}
}

func TestComposeRejectsBadAsset(t *testing.T) {
	if _, err := runCLI(t, "compose", "CreateTicket", "--caller", testCaller(t), "--asset-in", "bond:x"); err == nil {
		t.Fatalf("expected asset parse error")
	}
	if _, err := runCLI(t, "compose", "Teleport", "--caller", testCaller(t)); err == nil {
		t.Fatalf("expected unknown operation error")
	}
}
