package ir

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Parse reads the textual LPIR form spec.md §6 defines (the same grammar
// Function.Format/BasicBlock.Format/Instruction.Format produce) and builds
// a Function from it. It exists so the filetest-style fixtures in spec.md
// §6 can be embedded in Go tests as plain strings instead of built by hand
// with a Builder.
//
// Parse requires every value (block parameter or instruction result) to be
// named in the order it assigns numbers: first every block's parameters,
// block by block in the order the headers appear (block0's first), then
// every instruction result in the order it appears in the text. Format
// output round-trips when the Function was built in that same order
// (all block parameters added before any instruction); hand-written
// fixtures that renumber or skip values are rejected with an "undefined
// value" error rather than silently accepted.
func Parse(src string) (*Function, error) {
	lines := tokenizeLines(src)
	if len(lines) == 0 {
		return nil, fmt.Errorf("ir: empty input")
	}

	header := lines[0]
	m := reFunctionHeader.FindStringSubmatch(header.text)
	if m == nil {
		return nil, fmt.Errorf("ir: line %d: expected a function header, got %q", header.no, header.text)
	}
	sig, err := parseSignature(m[2], m[3])
	if err != nil {
		return nil, fmt.Errorf("ir: line %d: %w", header.no, err)
	}

	body := lines[1:]
	if len(body) == 0 || body[len(body)-1].text != "}" {
		return nil, fmt.Errorf("ir: function body must end with a closing brace")
	}
	body = body[:len(body)-1]

	fn := NewFunction(m[1], sig)

	type headerPos struct {
		idx int
		blk *BasicBlock
	}
	blockByName := map[string]*BasicBlock{}
	values := map[string]Value{}
	var headers []headerPos

	for idx, ln := range body {
		bm := reBlockHeader.FindStringSubmatch(ln.text)
		if bm == nil {
			continue
		}
		id, _ := strconv.Atoi(bm[1])
		var blk *BasicBlock
		if id == 0 {
			blk = fn.EntryBlock()
			if err := checkEntryParams(blk, bm[2]); err != nil {
				return nil, fmt.Errorf("ir: line %d: %w", ln.no, err)
			}
		} else {
			blk = fn.CreateBlock()
			for _, ptok := range splitArgsRaw(bm[2]) {
				typ, err := parseParamType(ptok)
				if err != nil {
					return nil, fmt.Errorf("ir: line %d: %w", ln.no, err)
				}
				blk.AddParam(fn, typ)
			}
		}
		for i := 0; i < blk.Params(); i++ {
			p := blk.Param(i)
			values[p.String()] = p
		}
		blockByName[blk.Name()] = blk
		headers = append(headers, headerPos{idx: idx, blk: blk})
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("ir: function body declares no blocks")
	}

	b := NewBuilder(fn)
	for k, h := range headers {
		end := len(body)
		if k+1 < len(headers) {
			end = headers[k+1].idx
		}
		b.SetCurrentBlock(h.blk)
		for i := h.idx + 1; i < end; i++ {
			ln := body[i]
			if err := parseInstructionLine(fn, b, values, blockByName, ln.text); err != nil {
				return nil, fmt.Errorf("ir: line %d: %w", ln.no, err)
			}
		}
	}
	return fn, nil
}

type sourceLine struct {
	no   int
	text string
}

// tokenizeLines strips ';' comments and blank lines, keeping each
// surviving line's original 1-based line number for error messages.
func tokenizeLines(src string) []sourceLine {
	var out []sourceLine
	for i, raw := range strings.Split(src, "\n") {
		text := raw
		if idx := strings.IndexByte(text, ';'); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		out = append(out, sourceLine{no: i + 1, text: text})
	}
	return out
}

var (
	reFunctionHeader = regexp.MustCompile(`^function %([A-Za-z_][A-Za-z0-9_]*)\((.*?)\)(?:\s*->\s*(.*?))?\s*\{$`)
	reBlockHeader    = regexp.MustCompile(`^block(\d+)(?:\((.*)\))?:$`)
	reBlockToken     = regexp.MustCompile(`^block\d+$`)
)

func parseSignature(paramsStr, resultsStr string) (*Signature, error) {
	sig := &Signature{}
	for _, tok := range splitArgsRaw(paramsStr) {
		t, err := parseType(tok)
		if err != nil {
			return nil, err
		}
		sig.Params = append(sig.Params, t)
	}
	for _, tok := range splitArgsRaw(resultsStr) {
		t, err := parseType(tok)
		if err != nil {
			return nil, err
		}
		sig.Results = append(sig.Results, t)
	}
	return sig, nil
}

// splitArgsRaw splits a comma-separated argument list, trimming
// whitespace, and returns nil for an empty/blank list.
func splitArgsRaw(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func parseType(s string) (Type, error) {
	switch s {
	case "i32":
		return TypeI32, nil
	case "u32":
		return TypeU32, nil
	case "f32":
		return TypeF32, nil
	default:
		return 0, fmt.Errorf("unknown type %q", s)
	}
}

// parseParamType reads a block-header parameter token of the form "v3:i32",
// discarding the declared value number: the parser assigns the canonical
// number itself via AddParam and indexes values by the result, not by what
// the text claims.
func parseParamType(tok string) (Type, error) {
	parts := strings.SplitN(tok, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed block parameter %q", tok)
	}
	return parseType(parts[1])
}

func checkEntryParams(blk *BasicBlock, paramsStr string) error {
	toks := splitArgsRaw(paramsStr)
	if len(toks) != blk.Params() {
		return fmt.Errorf("block0 declares %d parameter(s), signature has %d", len(toks), blk.Params())
	}
	return nil
}

var intCCByName = map[string]IntCC{
	"eq": IntCCEqual, "ne": IntCCNotEqual,
	"slt": IntCCSignedLessThan, "sge": IntCCSignedGreaterThanOrEqual,
	"sgt": IntCCSignedGreaterThan, "sle": IntCCSignedLessThanOrEqual,
	"ult": IntCCUnsignedLessThan, "uge": IntCCUnsignedGreaterThanOrEqual,
	"ugt": IntCCUnsignedGreaterThan, "ule": IntCCUnsignedLessThanOrEqual,
}

func parseIntCC(s string) (IntCC, error) {
	if c, ok := intCCByName[s]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown icmp condition %q", s)
}

var floatCCByName = map[string]FloatCC{
	"eq": FloatCCEqual, "ne": FloatCCNotEqual,
	"lt": FloatCCLessThan, "le": FloatCCLessThanOrEqual,
	"gt": FloatCCGreaterThan, "ge": FloatCCGreaterThanOrEqual,
	"ord": FloatCCOrdered, "uno": FloatCCUnordered,
}

func parseFloatCC(s string) (FloatCC, error) {
	if c, ok := floatCCByName[s]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown fcmp condition %q", s)
}

var trapCodeByName = map[string]TrapCode{
	"int_divz":  TrapCodeIntegerDivisionByZero,
	"int_ovf":   TrapCodeIntegerOverflow,
	"heap_oob":  TrapCodeHeapOutOfBounds,
	"stk_ovf":   TrapCodeStackOverflow,
	"bad_toint": TrapCodeBadConversionToInteger,
}

// parseTrapCode recognises the five reserved trap code names, plus the
// literal "user0" TrapCode.String() renders every user-defined code as
// (a known lossy round-trip already present in TrapCode.String(), not
// something this parser can recover past the first user code).
func parseTrapCode(s string) (TrapCode, error) {
	if c, ok := trapCodeByName[s]; ok {
		return c, nil
	}
	if s == "user0" {
		return trapCodeReservedMax + 1, nil
	}
	return 0, fmt.Errorf("unknown trap code %q", s)
}

func parseSymbolRef(tok string) (SymbolRef, error) {
	if !strings.HasPrefix(tok, "%") {
		return SymbolRef{}, fmt.Errorf("malformed call target %q", tok)
	}
	body := tok[1:]
	if strings.HasSuffix(body, "(external)") {
		return External(strings.TrimSuffix(body, "(external)")), nil
	}
	return Local(body), nil
}

func lookupValue(values map[string]Value, tok string) (Value, error) {
	v, ok := values[tok]
	if !ok {
		return ValueInvalid, fmt.Errorf("undefined value %q", tok)
	}
	return v, nil
}

func lookupValues(values map[string]Value, toks []string) ([]Value, error) {
	if len(toks) == 0 {
		return nil, nil
	}
	out := make([]Value, len(toks))
	for i, t := range toks {
		v, err := lookupValue(values, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// parseResultTypes reads a call instruction's left-hand side, the only
// place an instruction's result type(s) aren't already implied by its
// operands or its opcode's type suffix.
func parseResultTypes(lhs string) ([]Type, error) {
	toks := splitArgsRaw(lhs)
	if len(toks) == 0 {
		return nil, nil
	}
	types := make([]Type, len(toks))
	for i, tok := range toks {
		parts := strings.SplitN(tok, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed result %q", tok)
		}
		t, err := parseType(parts[1])
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

// cutSpace splits s at its first space, reporting whether a non-empty
// prefix was found (used by icmp/fcmp, whose condition mnemonic precedes
// a comma-separated argument list rather than being part of it).
func cutSpace(s string) (before, after string, ok bool) {
	idx := strings.IndexByte(s, ' ')
	if idx < 0 {
		return s, "", s != ""
	}
	return s[:idx], s[idx+1:], true
}

func parseInstructionLine(fn *Function, b Builder, values map[string]Value, blocks map[string]*BasicBlock, text string) error {
	lhs, rhs := "", text
	if idx := strings.Index(text, " = "); idx >= 0 {
		lhs, rhs = text[:idx], text[idx+len(" = "):]
	}
	mnemonic, argsStr := rhs, ""
	if idx := strings.IndexByte(rhs, ' '); idx >= 0 {
		mnemonic, argsStr = rhs[:idx], rhs[idx+1:]
	}
	base, suffix := mnemonic, ""
	if idx := strings.IndexByte(mnemonic, '.'); idx >= 0 {
		base, suffix = mnemonic[:idx], mnemonic[idx+1:]
	}

	instr := fn.NewInstruction()

	switch base {
	case "iadd", "isub", "imul", "idiv", "irem", "imulh", "iand", "ior", "ixor",
		"ishl", "ishr", "iashr", "fadd", "fsub", "fmul", "fdiv":
		args := splitArgsRaw(argsStr)
		if len(args) != 2 {
			return fmt.Errorf("%s expects 2 arguments, got %d", base, len(args))
		}
		x, err := lookupValue(values, args[0])
		if err != nil {
			return err
		}
		y, err := lookupValue(values, args[1])
		if err != nil {
			return err
		}
		switch base {
		case "iadd":
			instr.AsIadd(x, y, b)
		case "isub":
			instr.AsIsub(x, y, b)
		case "imul":
			instr.AsImul(x, y, b)
		case "idiv":
			instr.AsIdiv(x, y, b)
		case "irem":
			instr.AsIrem(x, y, b)
		case "imulh":
			instr.AsImulh(x, y, b)
		case "iand":
			instr.AsIand(x, y, b)
		case "ior":
			instr.AsIor(x, y, b)
		case "ixor":
			instr.AsIxor(x, y, b)
		case "ishl":
			instr.AsIshl(x, y, b)
		case "ishr":
			instr.AsIshr(x, y, b)
		case "iashr":
			instr.AsIashr(x, y, b)
		case "fadd":
			instr.AsFadd(x, y, b)
		case "fsub":
			instr.AsFsub(x, y, b)
		case "fmul":
			instr.AsFmul(x, y, b)
		case "fdiv":
			instr.AsFdiv(x, y, b)
		}

	case "inot":
		args := splitArgsRaw(argsStr)
		if len(args) != 1 {
			return fmt.Errorf("inot expects 1 argument, got %d", len(args))
		}
		x, err := lookupValue(values, args[0])
		if err != nil {
			return err
		}
		instr.AsInot(x, b)

	case "icmp", "fcmp":
		condTok, rest, ok := cutSpace(argsStr)
		if !ok {
			return fmt.Errorf("%s is missing its condition", base)
		}
		args := splitArgsRaw(rest)
		if len(args) != 2 {
			return fmt.Errorf("%s expects 2 arguments, got %d", base, len(args))
		}
		x, err := lookupValue(values, args[0])
		if err != nil {
			return err
		}
		y, err := lookupValue(values, args[1])
		if err != nil {
			return err
		}
		if base == "icmp" {
			c, err := parseIntCC(condTok)
			if err != nil {
				return err
			}
			instr.AsIcmp(x, y, c, b)
		} else {
			c, err := parseFloatCC(condTok)
			if err != nil {
				return err
			}
			instr.AsFcmp(x, y, c, b)
		}

	case "load":
		typ, err := parseType(suffix)
		if err != nil {
			return err
		}
		args := splitArgsRaw(argsStr)
		if len(args) != 2 {
			return fmt.Errorf("load expects 2 arguments, got %d", len(args))
		}
		ptr, err := lookupValue(values, args[0])
		if err != nil {
			return err
		}
		offset, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("bad load offset %q: %w", args[1], err)
		}
		instr.AsLoad(ptr, int32(offset), typ, b)

	case "store":
		typ, err := parseType(suffix)
		if err != nil {
			return err
		}
		args := splitArgsRaw(argsStr)
		if len(args) != 3 {
			return fmt.Errorf("store expects 3 arguments, got %d", len(args))
		}
		value, err := lookupValue(values, args[0])
		if err != nil {
			return err
		}
		ptr, err := lookupValue(values, args[1])
		if err != nil {
			return err
		}
		offset, err := strconv.ParseInt(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("bad store offset %q: %w", args[2], err)
		}
		instr.AsStore(value, ptr, int32(offset), typ)

	case "stackalloc":
		args := splitArgsRaw(argsStr)
		if len(args) != 1 {
			return fmt.Errorf("stackalloc expects 1 argument, got %d", len(args))
		}
		size, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("bad stackalloc size %q: %w", args[0], err)
		}
		instr.AsStackalloc(uint32(size), b)

	case "jump":
		toks := splitArgsRaw(argsStr)
		if len(toks) == 0 {
			return fmt.Errorf("jump is missing its target")
		}
		target, ok := blocks[toks[0]]
		if !ok {
			return fmt.Errorf("jump to undefined block %q", toks[0])
		}
		args, err := lookupValues(values, toks[1:])
		if err != nil {
			return err
		}
		instr.AsJump(args, target)

	case "br":
		toks := splitArgsRaw(argsStr)
		if len(toks) < 3 {
			return fmt.Errorf("br needs a condition and two targets")
		}
		cond, err := lookupValue(values, toks[0])
		if err != nil {
			return err
		}
		trueTarget, ok := blocks[toks[1]]
		if !ok {
			return fmt.Errorf("br to undefined block %q", toks[1])
		}
		rest := toks[2:]
		falseIdx := -1
		for i, t := range rest {
			if reBlockToken.MatchString(t) {
				falseIdx = i
				break
			}
		}
		if falseIdx < 0 {
			return fmt.Errorf("br is missing its false target")
		}
		trueArgs, err := lookupValues(values, rest[:falseIdx])
		if err != nil {
			return err
		}
		falseTarget, ok := blocks[rest[falseIdx]]
		if !ok {
			return fmt.Errorf("br to undefined block %q", rest[falseIdx])
		}
		falseArgs, err := lookupValues(values, rest[falseIdx+1:])
		if err != nil {
			return err
		}
		instr.AsBr(cond, trueTarget, trueArgs, falseTarget, falseArgs)

	case "return":
		args, err := lookupValues(values, splitArgsRaw(argsStr))
		if err != nil {
			return err
		}
		instr.AsReturn(args)

	case "call":
		toks := splitArgsRaw(argsStr)
		if len(toks) == 0 {
			return fmt.Errorf("call is missing its callee")
		}
		sym, err := parseSymbolRef(toks[0])
		if err != nil {
			return err
		}
		args, err := lookupValues(values, toks[1:])
		if err != nil {
			return err
		}
		resultTypes, err := parseResultTypes(lhs)
		if err != nil {
			return err
		}
		instr.AsCall(sym, args, resultTypes, b)

	case "trap":
		code, err := parseTrapCode(strings.TrimSpace(argsStr))
		if err != nil {
			return err
		}
		instr.AsTrap(code)

	case "trapz", "trapnz":
		args := splitArgsRaw(argsStr)
		if len(args) != 2 {
			return fmt.Errorf("%s expects a value and a trap code", base)
		}
		v, err := lookupValue(values, args[0])
		if err != nil {
			return err
		}
		code, err := parseTrapCode(args[1])
		if err != nil {
			return err
		}
		if base == "trapz" {
			instr.AsTrapz(v, code)
		} else {
			instr.AsTrapnz(v, code)
		}

	case "iconst":
		typ, err := parseType(suffix)
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(argsStr), 10, 64)
		if err != nil {
			return fmt.Errorf("bad iconst value %q: %w", argsStr, err)
		}
		instr.AsIconst32(uint32(int32(n)), typ, b)

	case "fconst":
		text := strings.TrimSpace(argsStr)
		var f float64
		if text == "NaN" {
			f = math.NaN()
		} else {
			v, err := strconv.ParseFloat(text, 32)
			if err != nil {
				return fmt.Errorf("bad fconst value %q: %w", text, err)
			}
			f = v
		}
		instr.AsFconst32(float32(f), b)

	default:
		return fmt.Errorf("unknown opcode %q", base)
	}

	b.Insert(instr)
	first, rest := instr.Returns()
	if first.Valid() {
		values[first.String()] = first
	}
	for _, r := range rest {
		values[r.String()] = r
	}
	return nil
}
