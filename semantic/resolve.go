// Copyright © 2024 The ELPS authors

package semantic

import (
	"context"

	"github.com/luthersystems/emmylua/luatype"
)

// paramMatch classifies how well an argument fits a parameter.  Values are
// ordered from worst to best.
type paramMatch int

const (
	notMatch paramMatch = iota
	anyMatch
	typeMatch
)

// ResolveSignature picks the candidate that best fits a call with the given
// argument types.  colonCall is set for o:m(...) calls; a candidate declared
// with the other convention has its parameters realigned by one.  argCount
// overrides the number of supplied arguments used to discard candidates
// with too few parameters; nil means len(args).
//
// Candidates are scanned argument by argument.  A candidate is discarded
// when an argument does not fit its parameter.  The first candidate whose
// last parameter is typed and matched by the last argument wins outright.
// When several candidates survive every argument, the missing trailing
// parameters are scanned, accepting only untyped or nullable parameters.
// Failing all of that the best match seen is returned.
//
// An argument that does not fit any live candidate ends the scan, even
// when the only candidates left skipped that argument as their self slot.
// Each argument check runs under its own fork of guard; a nil guard
// starts from a fresh root.
//
// ResolveSignature always returns one of candidates unless candidates is
// empty (ErrNone) or ctx is done (ErrCancelled).
func ResolveSignature(ctx context.Context, db TypeIndex, guard *InferGuard, candidates []*luatype.FunctionType, args []luatype.Type, colonCall bool, argCount *int) (*luatype.FunctionType, error) {
	if guard == nil {
		guard = NewInferGuard()
	}
	switch len(candidates) {
	case 0:
		return nil, ErrNone
	case 1:
		recordResolution(ctx, outcomeSingle)
		return candidates[0], nil
	}
	n := len(args)
	if argCount != nil {
		n = *argCount
	}
	if len(args) == 0 {
		for _, f := range candidates {
			if len(f.Params) == 0 {
				recordResolution(ctx, outcomeExact)
				return f, nil
			}
		}
	}

	alive := make([]*luatype.FunctionType, len(candidates))
	copy(alive, candidates)
	best := candidates[0]

	for argIndex := range args {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		current := notMatch
		for i, f := range alive {
			if f == nil {
				continue
			}
			if len(f.Params) < requiredParams(f, n, colonCall) && !f.IsVariadic() {
				alive[i] = nil
				continue
			}
			paramIndex, ok := alignParam(f, argIndex, colonCall)
			if !ok {
				continue
			}
			paramType, ok := paramAt(f, paramIndex)
			if !ok {
				alive[i] = nil
				continue
			}

			match := notMatch
			switch {
			case paramType == luatype.Any:
				match = anyMatch
			case CheckCompatible(db, guard.Fork(), paramType, args[argIndex]) == nil:
				match = typeMatch
			}
			if match > current {
				current = match
				best = f
			}
			if match == notMatch {
				alive[i] = nil
				continue
			}
			if match > anyMatch && argIndex+1 == len(args) && paramIndex+1 == len(f.Params) {
				recordResolution(ctx, outcomeExact)
				return f, nil
			}
		}
		if current == notMatch {
			break
		}
	}

	var rest []*luatype.FunctionType
	for _, f := range alive {
		if f != nil {
			rest = append(rest, f)
		}
	}
	switch len(rest) {
	case 0:
		recordResolution(ctx, outcomeFallback)
		return best, nil
	case 1:
		recordResolution(ctx, outcomeSurvivor)
		return rest[0], nil
	}

	maxParams := 0
	for _, f := range rest {
		maxParams = max(maxParams, len(f.Params))
	}
	for argIndex := len(args); argIndex < maxParams; argIndex++ {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}
		current := notMatch
		for i, f := range rest {
			if f == nil {
				continue
			}
			paramIndex, ok := alignParam(f, argIndex, colonCall)
			if !ok {
				continue
			}
			paramType, ok := paramAt(f, paramIndex)
			if !ok {
				recordResolution(ctx, outcomeExact)
				return f, nil
			}

			// no argument to check: an omitted parameter must accept nil
			match := notMatch
			switch {
			case paramType == luatype.Any:
				match = anyMatch
			case luatype.IsNullable(paramType):
				match = typeMatch
			}
			if match > current {
				current = match
				best = f
			}
			if match == notMatch {
				rest[i] = nil
				continue
			}
			if i+1 == len(rest) && paramIndex+1 == len(f.Params) {
				recordResolution(ctx, outcomeExact)
				return f, nil
			}
		}
		if current == notMatch {
			break
		}
	}
	recordResolution(ctx, outcomeFallback)
	return best, nil
}

// alignParam maps argument argIndex of a call to a parameter index of f.
// The receiver argument of a plain call never fills the self slot of a
// method, so ok is false for it.
func alignParam(f *luatype.FunctionType, argIndex int, colonCall bool) (int, bool) {
	switch {
	case f.Colon && !colonCall:
		if argIndex == 0 {
			return 0, false
		}
		return argIndex - 1, true
	case !f.Colon && colonCall:
		return argIndex + 1, true
	}
	return argIndex, true
}

// requiredParams returns the number of parameters f needs to accept n
// call arguments.
func requiredParams(f *luatype.FunctionType, n int, colonCall bool) int {
	switch {
	case f.Colon && !colonCall:
		return n - 1
	case !f.Colon && colonCall:
		return n + 1
	}
	return n
}

// paramAt returns the type of parameter i of f, extending a variadic tail.
// Untyped parameters are Any.
func paramAt(f *luatype.FunctionType, i int) (luatype.Type, bool) {
	if i < len(f.Params) {
		return f.ParamType(i), true
	}
	return f.VariadicType()
}
