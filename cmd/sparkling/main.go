// cmd/sparkling/main.go
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"sparkling/internal/context"
	"sparkling/internal/stdlib"
)

const VERSION = "1.0.0"

var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
	"c": "compile",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Printf("sparkling %s\n", VERSION)
	case "run":
		if len(args) < 2 {
			log.Fatalf("run: expected a source file")
		}
		runFile(args[1])
	case "repl":
		runRepl()
	case "compile":
		if len(args) < 2 {
			log.Fatalf("compile: expected a source file")
		}
		compileFile(args[1])
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func newContext() *context.Context {
	ctx := context.New()
	vm := ctx.VM()
	stdlib.RegisterIo(vm)
	stdlib.RegisterStr(vm)
	stdlib.RegisterArr(vm)
	stdlib.RegisterHashMap(vm)
	stdlib.RegisterMath(vm)
	stdlib.RegisterSysutil(vm, ctx)
	stdlib.RegisterDb(vm)
	stdlib.RegisterNet(vm)
	stdlib.RegisterCrypto(vm)
	return ctx
}

func runFile(path string) {
	ctx := newContext()
	exec := ctx.ExecSrcFile
	if filepath.Ext(path) == ".spo" {
		exec = ctx.ExecObjFile
	}
	if _, err := exec(path); err != nil {
		log.Fatalf("%s: %s: %v", ctx.GetErrType(), path, err)
	}
}

func compileFile(path string) {
	ctx := newContext()
	fn, err := ctx.LoadSrcFile(path)
	if err != nil {
		log.Fatalf("%s: %s: %v", ctx.GetErrType(), path, err)
	}
	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".spo"
	if err := ctx.SaveObjFile(fn, out); err != nil {
		log.Fatalf("%s: %s: %v", ctx.GetErrType(), out, err)
	}
	fmt.Printf("%s -> %s\n", path, out)
}

func runRepl() {
	ctx := newContext()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("sparkling %s\n", VERSION)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		result, err := ctx.ExecString(line)
		if err != nil {
			fmt.Printf("%s: %v\n", ctx.GetErrType(), err)
			continue
		}
		fmt.Println(result.String())
	}
}

func showUsage() {
	fmt.Println("Sparkling - a small dynamically typed scripting language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sparkling run <file.spn|spo>  Run a script or object file (alias: r)")
	fmt.Println("  sparkling compile <file.spn>  Compile to a .spo object    (alias: c)")
	fmt.Println("  sparkling repl                Start the interactive REPL  (alias: i)")
	fmt.Println("  sparkling --version           Show version")
	fmt.Println("  sparkling help                Show this message")
}
