package compose

import (
	"bytes"
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"text/template"
)

const programTemplate = `package main

import (
	"std"
{{range .Imports}}
	{{.Alias}} {{quote .Path}}
{{- end}}
)

func main() {
	spender := std.DerivePkgAddr({{quote .Exchange}})
{{range .Steps}}
{{- if eq .Kind "resolve"}}
	{{.Handle}} := {{if .IsNFT}}grc721reg{{else}}grc20reg{{end}}.Get({{quote .Asset.Path}})
	if {{.Handle}} == nil {
		panic({{quote (printf "unknown asset %s" .Asset.Path)}})
	}
{{- else if eq .Kind "grant"}}
{{- if .IsNFT}}
	if err := {{.Handle}}.Approve(spender, grc721.TokenID({{quote .Asset.TokenID}})); err != nil {
		panic(err)
	}
{{- else}}
	if err := {{.Handle}}.CallerTeller().Approve(spender, {{.Amount}}); err != nil {
		panic(err)
	}
{{- end}}
{{- else if eq .Kind "call"}}
{{- if .Returns}}
	result, err := exchange.{{.Func}}({{args .Args}})
	if err != nil {
		panic(err)
	}
	println(result)
{{- else}}
	if err := exchange.{{.Func}}({{args .Args}}); err != nil {
		panic(err)
	}
{{- end}}
{{- end}}
{{end}}
}
`

var program = template.Must(template.New("main.gno").Funcs(template.FuncMap{
	"quote": strconv.Quote,
	"args":  renderArgs,
}).Parse(programTemplate))

type importSpec struct {
	Alias string
	Path  string
}

type programData struct {
	Exchange string
	Imports  []importSpec
	Steps    []Step
}

func renderArgs(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a.Number {
			parts[i] = a.Value
			continue
		}
		parts[i] = strconv.Quote(a.Value)
	}
	return strings.Join(parts, ", ")
}

// renderProgram turns a run plan into a formatted package main source.
func renderProgram(cfg Config, plan Plan) (string, error) {
	var tokens, nfts bool
	for _, s := range plan.Steps {
		if s.Kind != StepResolve {
			continue
		}
		if s.IsNFT() {
			nfts = true
		} else {
			tokens = true
		}
	}

	data := programData{Exchange: cfg.ExchangePath, Steps: plan.Steps}
	if tokens {
		data.Imports = append(data.Imports, importSpec{Alias: "grc20reg", Path: cfg.GRC20Registry})
	}
	if nfts {
		data.Imports = append(data.Imports,
			importSpec{Alias: "grc721", Path: cfg.GRC721Package},
			importSpec{Alias: "grc721reg", Path: cfg.GRC721Registry},
		)
	}
	data.Imports = append(data.Imports, importSpec{Alias: "exchange", Path: cfg.ExchangePath})

	var buf bytes.Buffer
	if err := program.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render program: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("format program: %w", err)
	}
	return string(src), nil
}
