// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package commandfile implements the Command File Parser (C5): it turns a
// command file's comments, quoted tokens, MACRO/LONG MACRO/INCLUDE
// directives and macro calls into a series of argument vectors delivered
// to a scheduler sink.
package commandfile

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"regexp"

	"context"

	"chromiumos/invoke/errors"
	"chromiumos/invoke/logging"
)

// Sink receives one argument vector per resolved command-file line.
type Sink interface {
	AddCommand(argv []string) error
}

// ConfigurationError wraps any failure encountered while parsing a command
// file: malformed directives, unterminated quoting, or a call to an
// undefined macro. Per spec §7 it is propagated to the caller of Parse
// rather than interpreted by the parser itself.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

func configurationErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Err: errors.Errorf(format, args...)}
}

var (
	macroNameRe = regexp.MustCompile(`^[A-Za-z_][\w-]*$`)
	macroCallRe = regexp.MustCompile(`^([A-Za-z_][\w-]*)\(\)$`)
)

// line is one logical, tokenized line still awaiting macro expansion.
type line struct {
	tokens []string
}

// Parse reads the command file at path, recursively inlining INCLUDE
// directives and recording MACRO/LONG MACRO definitions, then expands
// every remaining line to a fixpoint and delivers argv+extraArgs to sink
// for each one, in document order.
func Parse(ctx context.Context, path string, extraArgs []string, sink Sink) error {
	shortMacros := map[string][]string{}
	longMacros := map[string][][]string{}
	seenIncludes := map[string]bool{}
	var lines []line

	if err := parseFile(ctx, path, shortMacros, longMacros, seenIncludes, &lines); err != nil {
		return err
	}

	expanded, err := expand(lines, shortMacros, longMacros)
	if err != nil {
		return err
	}

	for _, l := range expanded {
		argv := make([]string, 0, len(l.tokens)+len(extraArgs))
		argv = append(argv, l.tokens...)
		argv = append(argv, extraArgs...)
		if err := sink.AddCommand(argv); err != nil {
			return err
		}
	}
	return nil
}

// parseFile reads one file (the top-level file or an INCLUDE target),
// mutating shortMacros/longMacros/seenIncludes and appending every
// executable (non-directive) line it finds, in order, to *lines.
func parseFile(ctx context.Context, path string, shortMacros map[string][]string, longMacros map[string][][]string, seenIncludes map[string]bool, lines *[]line) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return configurationErrorf("reading command file %s: %v", path, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		toks, err := tokenize(scanner.Text())
		if err != nil {
			return configurationErrorf("%s: %v", path, err)
		}
		if len(toks) == 0 {
			continue
		}

		switch {
		case toks[0] == "MACRO":
			if err := defineShortMacro(ctx, path, toks, shortMacros); err != nil {
				return configurationErrorf("%s: %v", path, err)
			}

		case toks[0] == "LONG" && len(toks) >= 2 && toks[1] == "MACRO":
			if len(toks) != 3 {
				return configurationErrorf("%s: malformed LONG MACRO directive: %v", path, toks)
			}
			name := toks[2]
			if !macroNameRe.MatchString(name) {
				return configurationErrorf("%s: invalid macro name %q", path, name)
			}
			body, err := readLongMacroBody(scanner)
			if err != nil {
				return configurationErrorf("%s: LONG MACRO %s: %v", path, name, err)
			}
			if _, exists := longMacros[name]; exists {
				logging.Infof(ctx, "%s: redefining long macro %s", path, name)
			}
			longMacros[name] = body

		case toks[0] == "INCLUDE":
			if len(toks) != 2 {
				return configurationErrorf("%s: malformed INCLUDE directive: %v", path, toks)
			}
			resolved := resolveIncludePath(path, toks[1])
			if seenIncludes[resolved] {
				continue
			}
			seenIncludes[resolved] = true
			if err := parseFile(ctx, resolved, shortMacros, longMacros, seenIncludes, lines); err != nil {
				return err
			}

		default:
			*lines = append(*lines, line{tokens: toks})
		}
	}
	if err := scanner.Err(); err != nil {
		return configurationErrorf("reading %s: %v", path, err)
	}
	return nil
}

func defineShortMacro(ctx context.Context, path string, toks []string, shortMacros map[string][]string) error {
	if len(toks) < 3 || toks[2] != "=" {
		return configurationErrorf("malformed MACRO directive: %v", toks)
	}
	name := toks[1]
	if !macroNameRe.MatchString(name) {
		return configurationErrorf("invalid macro name %q", name)
	}
	rhs := toks[3:]
	if len(rhs) == 0 {
		return configurationErrorf("MACRO %s has an empty expansion", name)
	}
	if _, exists := shortMacros[name]; exists {
		logging.Infof(ctx, "%s: redefining macro %s", path, name)
	}
	shortMacros[name] = append([]string(nil), rhs...)
	return nil
}

// readLongMacroBody reads body lines up to and including END MACRO,
// tokenizing each one (so it remains subject to comments and quoting).
func readLongMacroBody(scanner *bufio.Scanner) ([][]string, error) {
	var body [][]string
	for scanner.Scan() {
		toks, err := tokenize(scanner.Text())
		if err != nil {
			return nil, err
		}
		if len(toks) == 2 && toks[0] == "END" && toks[1] == "MACRO" {
			return body, nil
		}
		if len(toks) == 0 {
			continue
		}
		body = append(body, toks)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, configurationErrorf("reached end of file before END MACRO")
}

// resolveIncludePath resolves an INCLUDE target relative to the directory
// of the including file; absolute paths are used as-is. A file with no
// parent directory component (filepath.Dir returns ".") resolves relative
// to the current working directory, which filepath.Join already does.
func resolveIncludePath(parentPath, includePath string) string {
	if filepath.IsAbs(includePath) {
		return includePath
	}
	return filepath.Join(filepath.Dir(parentPath), includePath)
}
