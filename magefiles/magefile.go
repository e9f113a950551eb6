//go:build mage

// Package main provides build targets for linkgraph using Mage.
//
// Usage:
//
//	mage build         Compile the linkgraph binary to bin/
//	mage test          Run all package tests
//	mage testPostgres  Run the store tests against LINKGRAPH_TEST_POSTGRES_DSN
//	mage lint          Run golangci-lint
//	mage clean         Remove build artifacts
//	mage install       Install linkgraph to GOPATH/bin
package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "linkgraph"
	binaryDir  = "bin"
	cmdDir     = "./cmd/linkgraph"

	envPostgresDSN = "LINKGRAPH_TEST_POSTGRES_DSN"
)

// Build compiles the linkgraph binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs every package test with the race detector.
func Test() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// TestPostgres runs the store tests against a live PostgreSQL server.
func TestPostgres() error {
	if os.Getenv(envPostgresDSN) == "" {
		return errors.New(envPostgresDSN + " must be set")
	}
	return sh.RunV(binGo, "test", "-race", "-count=1", "./internal/store/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), filepath.Join(binaryDir, binaryName))
}
