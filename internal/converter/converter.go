// Package converter drives the external device converter binary and
// the environment preflight it depends on.
package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kawakami-masaki0/mct-model-optimization/internal/logger"
)

var (
	// ErrEnvironmentUnavailable reports a missing or broken runtime
	// dependency. Fatal and user-visible; never retried.
	ErrEnvironmentUnavailable = errors.New("converter: environment unavailable")

	// ErrConversionFailed reports a non-zero converter exit.
	ErrConversionFailed = errors.New("converter: conversion failed")

	// ErrArtifactMissing reports a zero exit with no output artifact.
	// The exit code alone is never trusted.
	ErrArtifactMissing = errors.New("converter: expected artifact missing")
)

// DefaultBin is the converter binary resolved when none is configured.
const DefaultBin = "imxconv-pt"

// Runner invokes the out-of-process converter.
type Runner struct {
	// Bin is the converter binary. Empty means DefaultBin.
	Bin string

	// JavaBin is the JVM binary probed during preflight. Empty means "java".
	JavaBin string

	Log logger.Logger
}

func (r *Runner) bin() string {
	if r.Bin != "" {
		return r.Bin
	}
	return DefaultBin
}

func (r *Runner) java() string {
	if r.JavaBin != "" {
		return r.JavaBin
	}
	return "java"
}

func (r *Runner) log() logger.Logger {
	if r.Log != nil {
		return r.Log
	}
	return logger.Default()
}

// Convert runs the converter on inputPath, writing into outDir, and
// verifies the expected artifact exists afterwards. It returns the
// artifact path.
func (r *Runner) Convert(ctx context.Context, inputPath, outDir string, overwrite bool) (string, error) {
	args := []string{"-i", inputPath, "-o", outDir}
	if overwrite {
		args = append(args, "--overwrite-output")
	}

	r.log().Info("running converter", "bin", r.bin(), "input", inputPath, "out", outDir)
	cmd := exec.CommandContext(ctx, r.bin(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v: %s", ErrConversionFailed, r.bin(), err, strings.TrimSpace(string(out)))
	}

	artifact := ArtifactPath(inputPath, outDir)
	if _, err := os.Stat(artifact); err != nil {
		return "", fmt.Errorf("%w: %s", ErrArtifactMissing, artifact)
	}
	return artifact, nil
}

// ArtifactPath returns where the converter is expected to leave its
// output for a given input model.
func ArtifactPath(inputPath, outDir string) string {
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(outDir, stem+".pbtxt")
}
