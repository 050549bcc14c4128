// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package commandfile

// expand resolves every name() macro call in lines to a fixpoint, given
// the fully-populated short and long macro tables. A short macro call is
// spliced into its line in place. A long macro call forks its owning line
// once per body line of the macro, splicing that body line's tokens into
// the call's position and keeping the rest of the original line intact on
// every fork; a long macro with an empty body makes the call vanish along
// with the rest of its line.
//
// The pending bitmap and its "how many lines are still pending" count are
// a single source of truth: the count is always derived from the bitmap
// by counting, never tracked as an independently-incremented field, so
// the two can never drift out of step.
func expand(lines []line, shortMacros map[string][]string, longMacros map[string][][]string) ([]line, error) {
	pending := make([]bool, len(lines))
	for i := range lines {
		pending[i] = containsCall(lines[i].tokens)
	}

	for countPending(pending) > 0 {
		idx := firstPending(pending)
		tokens := lines[idx].tokens
		callIdx, name, ok := firstCall(tokens)
		if !ok {
			// Shouldn't happen: pending[idx] is only set when a call is
			// present. Clear it defensively rather than loop forever.
			pending[idx] = false
			continue
		}

		if repl, ok := shortMacros[name]; ok {
			newTokens := spliceLine(tokens, callIdx, repl)
			lines[idx] = line{tokens: newTokens}
			pending[idx] = containsCall(newTokens)
			continue
		}

		if bodies, ok := longMacros[name]; ok {
			forked := make([]line, len(bodies))
			forkedPending := make([]bool, len(bodies))
			for i, body := range bodies {
				t := spliceLine(tokens, callIdx, body)
				forked[i] = line{tokens: t}
				forkedPending[i] = containsCall(t)
			}
			lines = spliceLines(lines, idx, forked)
			pending = spliceBools(pending, idx, forkedPending)
			continue
		}

		return nil, configurationErrorf("call to undefined macro %s()", name)
	}

	return lines, nil
}

func countPending(pending []bool) int {
	n := 0
	for _, p := range pending {
		if p {
			n++
		}
	}
	return n
}

func firstPending(pending []bool) int {
	for i, p := range pending {
		if p {
			return i
		}
	}
	return -1
}

// containsCall reports whether any token in tokens is a macro call.
func containsCall(tokens []string) bool {
	for _, t := range tokens {
		if macroCallRe.MatchString(t) {
			return true
		}
	}
	return false
}

// firstCall returns the index and macro name of the first name() token
// in tokens.
func firstCall(tokens []string) (int, string, bool) {
	for i, t := range tokens {
		if m := macroCallRe.FindStringSubmatch(t); m != nil {
			return i, m[1], true
		}
	}
	return -1, "", false
}

// spliceLine returns a new token slice with the token at idx replaced by
// the tokens in replacement.
func spliceLine(tokens []string, idx int, replacement []string) []string {
	out := make([]string, 0, len(tokens)-1+len(replacement))
	out = append(out, tokens[:idx]...)
	out = append(out, replacement...)
	out = append(out, tokens[idx+1:]...)
	return out
}

// spliceLines returns a new line slice with lines[idx] replaced by the
// entries in forked, preserving the order of everything else.
func spliceLines(lines []line, idx int, forked []line) []line {
	out := make([]line, 0, len(lines)-1+len(forked))
	out = append(out, lines[:idx]...)
	out = append(out, forked...)
	out = append(out, lines[idx+1:]...)
	return out
}

// spliceBools is spliceLines's counterpart for the parallel pending bitmap.
func spliceBools(pending []bool, idx int, forked []bool) []bool {
	out := make([]bool, 0, len(pending)-1+len(forked))
	out = append(out, pending[:idx]...)
	out = append(out, forked...)
	out = append(out, pending[idx+1:]...)
	return out
}
