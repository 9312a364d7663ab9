package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mim-lang/mim/internal/parser"
	"github.com/mim-lang/mim/internal/stdlib"
)

const testSuffix = "_test.mim"

// TestResult is the outcome of one test script.
type TestResult struct {
	Name     string
	Passed   bool
	Error    error
	Output   string
	Duration time.Duration
}

// cmdTest runs every test script under the given paths, or under the
// working directory when none are given.
func (a *app) cmdTest(args []string) int {
	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	verbose := flags.Bool("v", false, "print the output of passing scripts too")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	paths := flags.Args()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	failed := false
	for _, path := range paths {
		ok, err := a.runAllTests(path, *verbose)
		if err != nil {
			fmt.Fprintf(a.stderr, "Error accessing path %s: %v\n", path, err)
			return 1
		}
		if !ok {
			failed = true
		}
	}
	if failed {
		return 1
	}
	return 0
}

// runAllTests runs the test scripts found at path and prints a summary. It
// reports whether all of them passed.
func (a *app) runAllTests(path string, verbose bool) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	var testFiles []string
	if info.IsDir() {
		if testFiles, err = findTestFiles(path); err != nil {
			return false, err
		}
	} else if strings.HasSuffix(path, ".mim") {
		testFiles = []string{path}
	}

	if len(testFiles) == 0 {
		fmt.Fprintf(a.stdout, "No test files found in %s\n", path)
		return true, nil
	}

	fmt.Fprintf(a.stdout, "Running tests in %s...\n\n", path)

	var passed, failed int
	for _, file := range testFiles {
		result := a.runTestFile(file)
		if result.Passed {
			passed++
			fmt.Fprintf(a.stdout, "  ✓ %s (%s)\n", result.Name, result.Duration.Round(time.Millisecond))
			if verbose && result.Output != "" {
				fmt.Fprintf(a.stdout, "    Output: %s\n", result.Output)
			}
			continue
		}
		failed++
		fmt.Fprintf(a.stdout, "  ✗ %s\n", result.Name)
		if result.Error != nil {
			fmt.Fprintf(a.stdout, "    Error: %v\n", result.Error)
		}
		if result.Output != "" {
			fmt.Fprintf(a.stdout, "    Output: %s\n", result.Output)
		}
	}

	fmt.Fprintf(a.stdout, "\nTest Results: %d total, %d passed, %d failed\n", passed+failed, passed, failed)
	return failed == 0, nil
}

// findTestFiles lists the *_test.mim files under dir, skipping hidden
// directories.
func findTestFiles(dir string) ([]string, error) {
	var testFiles []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, testSuffix) {
			testFiles = append(testFiles, path)
		}
		return nil
	})
	return testFiles, err
}

// runTestFile runs one script in a fresh interpreter. The script passes
// when it finishes without error or calls exit(0).
func (a *app) runTestFile(filename string) (result TestResult) {
	result.Name = filename
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	src, err := os.ReadFile(filename)
	if err != nil {
		result.Error = fmt.Errorf("failed to read file: %w", err)
		return result
	}
	nodes, err := parser.ParseString(string(src), parser.WithFilename(filename))
	if err != nil {
		result.Error = err
		return result
	}

	var out bytes.Buffer
	scope, err := a.newRoot(&out)
	if err != nil {
		result.Error = err
		return result
	}
	_, err = a.newInterpreter().Run(nodes, scope)
	result.Output = strings.TrimSpace(out.String())

	var exitErr *stdlib.ExitError
	switch {
	case err == nil:
		result.Passed = true
	case errors.As(err, &exitErr) && exitErr.Code == 0:
		result.Passed = true
	case errors.As(err, &exitErr):
		result.Error = fmt.Errorf("exit status %d", exitErr.Code)
	default:
		result.Error = err
	}
	a.logger.Debug("test script finished", slog.String("file", filename), slog.Bool("passed", result.Passed))
	return result
}
