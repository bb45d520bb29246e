// Package playerjs unlocks signed stream URLs. The platform gates its
// media hosts behind two transforms buried in the player script: a
// signature scramble applied to the "s" cipher parameter and a throttle
// function applied to the "n" query parameter. This package extracts
// both from a fetched player script and evaluates the throttle function
// with goja.
package playerjs

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// Script is a parsed player script. Parsing is lazy and cached, so a
// Script is cheap to hold for the lifetime of a player build.
type Script struct {
	body []byte

	sigOnce sync.Once
	sigOps  []sigOperation
	sigErr  error

	nOnce  sync.Once
	nEval  func(string) string
	nErr   error
	evalMu sync.Mutex
}

func NewScript(body string) *Script {
	return &Script{body: []byte(body)}
}

type sigOperation func([]byte) []byte

const (
	jsVar      = "[a-zA-Z_\\$][a-zA-Z_0-9]*"
	reverseDef = ":function\\(a\\)\\{" +
		"(?:return )?a\\.reverse\\(\\)" +
		"\\}"
	spliceDef = ":function\\(a,b\\)\\{" +
		"a\\.splice\\(0,b\\)" +
		"\\}"
	swapDef = ":function\\(a,b\\)\\{" +
		"var c=a\\[0\\];a\\[0\\]=a\\[b(?:%a\\.length)?\\];a\\[b(?:%a\\.length)?\\]=c(?:;return a)?" +
		"\\}"
)

var (
	helperObjPattern = regexp.MustCompile(fmt.Sprintf(
		"(?:var|let|const)\\s+(%s)=\\{((?:(?:%s%s|%s%s|%s%s),?\\n?)+)\\}\\s*;?",
		jsVar, jsVar, swapDef, jsVar, spliceDef, jsVar, reverseDef))
	reversePattern = regexp.MustCompile(fmt.Sprintf("(?m)(?:^|,)(%s)%s", jsVar, reverseDef))
	splicePattern  = regexp.MustCompile(fmt.Sprintf("(?m)(?:^|,)(%s)%s", jsVar, spliceDef))
	swapPattern    = regexp.MustCompile(fmt.Sprintf("(?m)(?:^|,)(%s)%s", jsVar, swapDef))

	scrambleFuncPatterns = []*regexp.Regexp{
		regexp.MustCompile(fmt.Sprintf(
			"function(?:\\s+%s)?\\(a\\)\\{"+
				"a=a\\.split\\([^\\)]*\\);\\s*"+
				"((?:(?:a=)?%s(?:\\.%s|\\[[^\\]]+\\])\\(a,\\d+\\);?\\s*)+)"+
				"return a\\.join\\([^\\)]*\\)"+
				"\\}", jsVar, jsVar, jsVar)),
		regexp.MustCompile(fmt.Sprintf(
			"%s\\s*=\\s*function\\(a\\)\\{"+
				"a=a\\.split\\([^\\)]*\\);\\s*"+
				"((?:(?:a=)?%s(?:\\.%s|\\[[^\\]]+\\])\\(a,\\d+\\);?\\s*)+)"+
				"return a\\.join\\([^\\)]*\\)"+
				"\\}", jsVar, jsVar, jsVar)),
	}

	throttleNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\.get\("n"\)\)&&\(b=([a-zA-Z0-9$]{0,3})\[(\d+)\](.+)\|\|([a-zA-Z0-9]{0,3})`),
		regexp.MustCompile(`\.get\("n"\)\)\s*&&\s*\(b=([a-zA-Z0-9$]{1,})\[(\d+)\]\([a-zA-Z0-9$]{1,}\).+\|\|([a-zA-Z0-9$]{1,})`),
		regexp.MustCompile(`\.get\("n"\)\)\s*&&\s*\(b=([a-zA-Z0-9$]{1,})\([a-zA-Z0-9$]{1,}\)`),
		regexp.MustCompile(`\.get\("n"\).*?&&.*?([a-zA-Z0-9$]{1,})\([a-zA-Z0-9$]{1,}\)`),
	}

	timestampPattern = regexp.MustCompile(`signatureTimestamp[:=]\s*(\d+)`)
)

// DecodeSignature unscrambles the "s" cipher parameter.
func (s *Script) DecodeSignature(sig string) (string, error) {
	s.sigOnce.Do(func() {
		s.sigOps, s.sigErr = s.parseSigOperations()
	})
	if s.sigErr != nil {
		return "", s.sigErr
	}
	bs := []byte(sig)
	for _, op := range s.sigOps {
		bs = op(bs)
	}
	return string(bs), nil
}

// TransformN evaluates the throttle function against the "n" query
// parameter. An untransformed n value marks the request as automated
// and gets the stream host to throttle or reject it.
func (s *Script) TransformN(n string) (string, error) {
	s.nOnce.Do(func() {
		s.nEval, s.nErr = s.compileThrottleFunc()
	})
	if s.nErr != nil {
		return "", s.nErr
	}
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	return s.nEval(n), nil
}

// SignatureTimestamp returns the player build's signature timestamp,
// or 0 when the script carries none. The player API wants it echoed
// back so it serves ciphers this build can solve.
func (s *Script) SignatureTimestamp() int {
	if m := timestampPattern.FindSubmatch(s.body); len(m) == 2 {
		if ts, err := strconv.Atoi(string(m[1])); err == nil {
			return ts
		}
	}
	return 0
}

func (s *Script) parseSigOperations() ([]sigOperation, error) {
	objMatch := helperObjPattern.FindSubmatch(s.body)
	funcBody := s.findScrambleFuncBody()
	if len(objMatch) < 3 || len(funcBody) == 0 {
		return nil, errors.New("signature scramble not found in player script")
	}

	objName := objMatch[1]
	objBody := objMatch[2]

	var reverseKey, spliceKey, swapKey string
	if m := reversePattern.FindSubmatch(objBody); len(m) > 1 {
		reverseKey = string(m[1])
	}
	if m := splicePattern.FindSubmatch(objBody); len(m) > 1 {
		spliceKey = string(m[1])
	}
	if m := swapPattern.FindSubmatch(objBody); len(m) > 1 {
		swapKey = string(m[1])
	}

	callPattern, err := regexp.Compile(fmt.Sprintf(
		"(?:a=)?%s(?:\\.(%s|%s|%s)|\\[(?:\"(%s|%s|%s)\"|'(%s|%s|%s)')\\])\\(a,(\\d+)\\)",
		regexp.QuoteMeta(string(objName)),
		regexp.QuoteMeta(reverseKey), regexp.QuoteMeta(spliceKey), regexp.QuoteMeta(swapKey),
		regexp.QuoteMeta(reverseKey), regexp.QuoteMeta(spliceKey), regexp.QuoteMeta(swapKey),
		regexp.QuoteMeta(reverseKey), regexp.QuoteMeta(spliceKey), regexp.QuoteMeta(swapKey),
	))
	if err != nil {
		return nil, err
	}

	var ops []sigOperation
	for _, m := range callPattern.FindAllSubmatch(funcBody, -1) {
		if len(m) < 5 {
			continue
		}
		key := firstSubmatch(m[1], m[2], m[3])
		arg, _ := strconv.Atoi(string(m[4]))
		switch key {
		case reverseKey:
			ops = append(ops, reverseOp)
		case swapKey:
			ops = append(ops, swapOp(arg))
		case spliceKey:
			ops = append(ops, spliceOp(arg))
		}
	}
	if len(ops) == 0 {
		return nil, errors.New("signature scramble has no recognizable operations")
	}
	return ops, nil
}

func (s *Script) findScrambleFuncBody() []byte {
	for _, re := range scrambleFuncPatterns {
		if m := re.FindSubmatch(s.body); len(m) > 1 {
			return m[1]
		}
	}
	return nil
}

func (s *Script) compileThrottleFunc() (func(string) string, error) {
	name, err := s.findThrottleFuncName()
	if err != nil {
		return nil, err
	}
	src, err := s.extractFunctionSource(name)
	if err != nil {
		return nil, err
	}

	const exportName = "__throttle"
	vm := goja.New()
	if _, err := vm.RunString(exportName + "=" + src); err != nil {
		return nil, err
	}
	var fn func(string) string
	if err := vm.ExportTo(vm.Get(exportName), &fn); err != nil {
		return nil, err
	}
	return fn, nil
}

func (s *Script) findThrottleFuncName() (string, error) {
	for _, re := range throttleNamePatterns {
		m := re.FindSubmatch(s.body)
		if len(m) == 0 {
			continue
		}
		switch len(m) {
		case 5:
			if idx, err := strconv.Atoi(string(m[2])); err == nil && idx == 0 {
				return string(m[4]), nil
			}
			return string(m[1]), nil
		case 4:
			if idx, err := strconv.Atoi(string(m[2])); err == nil && idx == 0 {
				return string(m[3]), nil
			}
			return string(m[1]), nil
		default:
			return string(m[1]), nil
		}
	}
	return "", errors.New("throttle function name not found in player script")
}

// extractFunctionSource cuts the named function definition out of the
// script body by balancing braces, skipping braces inside string
// literals.
func (s *Script) extractFunctionSource(name string) (string, error) {
	name = strings.TrimSpace(name)
	defs := [][]byte{
		[]byte(name + "=function("),
		[]byte(name + " = function("),
		[]byte("function " + name + "("),
	}
	start := -1
	for _, def := range defs {
		if start = bytes.Index(s.body, def); start >= 0 {
			break
		}
	}
	if start < 0 {
		return "", fmt.Errorf("function %q not defined in player script", name)
	}

	pos := start + bytes.IndexByte(s.body[start:], '{') + 1
	var strChar byte
	for depth := 1; depth > 0; pos++ {
		if pos >= len(s.body) {
			return "", fmt.Errorf("function %q body is unterminated", name)
		}
		switch b := s.body[pos]; b {
		case '{':
			if strChar == 0 {
				depth++
			}
		case '}':
			if strChar == 0 {
				depth--
			}
		case '`', '"', '\'':
			if pos > 1 && s.body[pos-1] == '\\' && s.body[pos-2] != '\\' {
				continue
			}
			if strChar == 0 {
				strChar = b
			} else if strChar == b {
				strChar = 0
			}
		}
	}
	return string(s.body[start:pos]), nil
}

func firstSubmatch(groups ...[]byte) string {
	for _, g := range groups {
		if len(g) > 0 {
			return string(g)
		}
	}
	return ""
}

func spliceOp(pos int) sigOperation {
	return func(bs []byte) []byte {
		if pos < 0 || pos > len(bs) {
			return bs
		}
		return bs[pos:]
	}
}

func swapOp(arg int) sigOperation {
	return func(bs []byte) []byte {
		if len(bs) == 0 {
			return bs
		}
		pos := arg % len(bs)
		bs[0], bs[pos] = bs[pos], bs[0]
		return bs
	}
}

func reverseOp(bs []byte) []byte {
	for l, r := 0, len(bs)-1; l < r; l, r = l+1, r-1 {
		bs[l], bs[r] = bs[r], bs[l]
	}
	return bs
}
