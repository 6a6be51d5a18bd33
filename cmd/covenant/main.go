package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/covenant-lang/covenant/internal/bytecode"
	"github.com/covenant-lang/covenant/internal/compiler"
	"github.com/covenant-lang/covenant/internal/parser"
	"github.com/covenant-lang/covenant/internal/stdlib"
	"github.com/covenant-lang/covenant/internal/verify"
	"github.com/covenant-lang/covenant/internal/vm"
)

// Exit code constants.
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
	ExitParseError       = 3
	ExitVerifyError      = 4
	ExitCompileError     = 5
	ExitRuntimeError     = 6
)

func main() {
	var outFile string
	var runName string
	var argsJSON string
	flag.StringVar(&outFile, "o", "", "write compiled .covc module to this path")
	flag.StringVar(&runName, "run", "", "after compiling, invoke this contract and print its result")
	flag.StringVar(&argsJSON, "args", "{}", "JSON object of arguments for -run")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-o out.covc] [-run contract] [-args '{...}'] <source.cov>\n", os.Args[0])
		os.Exit(ExitInvalidArguments)
	}
	inputFile := flag.Arg(0)

	src, err := os.ReadFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(ExitIOError)
	}

	program, err := parser.Parse(inputFile, string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", inputFile, err)
		os.Exit(ExitParseError)
	}

	bridge := stdlib.NewDefault()

	bag := verify.Program(program, bridge)
	for _, d := range bag.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if bag.HasErrors() {
		os.Exit(ExitVerifyError)
	}

	mod, err := compiler.Compile(program, bridge.ModuleNames())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error compiling %s: %v\n", inputFile, err)
		os.Exit(ExitCompileError)
	}

	if outFile != "" {
		if err := writeModule(mod, outFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outFile, err)
			os.Exit(ExitIOError)
		}
	}

	if runName == "" {
		os.Exit(ExitSuccess)
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -args: %v\n", err)
		os.Exit(ExitInvalidArguments)
	}

	machine := vm.New(mod, bridge)
	result, err := machine.RunContract(runName, jsonArgsToValues(args))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running %s: %v\n", runName, err)
		os.Exit(ExitRuntimeError)
	}
	fmt.Println(result.String())
}

func writeModule(mod *bytecode.Module, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return bytecode.Write(f, mod)
}

func jsonArgsToValues(args map[string]interface{}) map[string]vm.Value {
	out := make(map[string]vm.Value, len(args))
	for k, v := range args {
		out[k] = jsonToValue(v)
	}
	return out
}

func jsonToValue(v interface{}) vm.Value {
	switch t := v.(type) {
	case nil:
		return vm.Null()
	case bool:
		return vm.BoolVal(t)
	case float64:
		if t == float64(int64(t)) {
			return vm.IntVal(int64(t))
		}
		return vm.FloatVal(t)
	case string:
		return vm.StringVal(t)
	case []interface{}:
		out := make([]vm.Value, len(t))
		for i, e := range t {
			out[i] = jsonToValue(e)
		}
		return vm.ListVal(out)
	case map[string]interface{}:
		names := make([]string, 0, len(t))
		values := make([]vm.Value, 0, len(t))
		for k, fv := range t {
			names = append(names, k)
			values = append(values, jsonToValue(fv))
		}
		return vm.ObjectVal(vm.NewObject("Object", names, values))
	default:
		return vm.Null()
	}
}
