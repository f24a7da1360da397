// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

type primitive int

const (
	primString primitive = iota
	primBoolean
	primDecimal
	primInteger
	primFloat
	primDate
	primDateTime
	primTime
)

// simpleType is a built-in type narrowed by zero or more facets.
type simpleType struct {
	name      string // user-declared name, empty for built-ins and anonymous types
	builtin   string
	prim      primitive
	collapse  bool // whitespace is collapsed before checking
	lo, hi    *big.Rat
	enum      []string
	baseEnums [][]string
	patterns  []*regexp.Regexp
	length    *int
	minLength *int
	maxLength *int
	minIncl   *big.Rat
	maxIncl   *big.Rat
	minExcl   *big.Rat
	maxExcl   *big.Rat
}

func (t *simpleType) derive() *simpleType {
	d := *t
	d.name = ""
	d.baseEnums = append([][]string(nil), t.baseEnums...)
	if len(t.enum) > 0 {
		d.baseEnums = append(d.baseEnums, t.enum)
	}
	d.enum = nil
	d.patterns = append([]*regexp.Regexp(nil), t.patterns...)
	return &d
}

func (t *simpleType) numeric() bool {
	return t.prim == primDecimal || t.prim == primInteger || t.prim == primFloat
}

func ratBound(v int64) *big.Rat { return new(big.Rat).SetInt64(v) }

func uintBound(v uint64) *big.Rat { return new(big.Rat).SetFrac(new(big.Int).SetUint64(v), big.NewInt(1)) }

func builtinType(name string) (*simpleType, error) {
	t := &simpleType{builtin: name, collapse: true}
	switch name {
	case "string", "anySimpleType":
		t.collapse = false
	case "normalizedString", "token", "language", "Name", "NCName", "ID", "IDREF", "NMTOKEN", "anyURI", "QName":
		t.prim = primString
	case "boolean":
		t.prim = primBoolean
	case "decimal":
		t.prim = primDecimal
	case "float", "double":
		t.prim = primFloat
	case "date":
		t.prim = primDate
	case "dateTime":
		t.prim = primDateTime
	case "time":
		t.prim = primTime
	case "integer":
		t.prim = primInteger
	case "long":
		t.prim, t.lo, t.hi = primInteger, ratBound(math.MinInt64), ratBound(math.MaxInt64)
	case "int":
		t.prim, t.lo, t.hi = primInteger, ratBound(math.MinInt32), ratBound(math.MaxInt32)
	case "short":
		t.prim, t.lo, t.hi = primInteger, ratBound(math.MinInt16), ratBound(math.MaxInt16)
	case "byte":
		t.prim, t.lo, t.hi = primInteger, ratBound(math.MinInt8), ratBound(math.MaxInt8)
	case "nonNegativeInteger":
		t.prim, t.lo = primInteger, ratBound(0)
	case "positiveInteger":
		t.prim, t.lo = primInteger, ratBound(1)
	case "nonPositiveInteger":
		t.prim, t.hi = primInteger, ratBound(0)
	case "negativeInteger":
		t.prim, t.hi = primInteger, ratBound(-1)
	case "unsignedLong":
		t.prim, t.lo, t.hi = primInteger, ratBound(0), uintBound(math.MaxUint64)
	case "unsignedInt":
		t.prim, t.lo, t.hi = primInteger, ratBound(0), ratBound(math.MaxUint32)
	case "unsignedShort":
		t.prim, t.lo, t.hi = primInteger, ratBound(0), ratBound(math.MaxUint16)
	case "unsignedByte":
		t.prim, t.lo, t.hi = primInteger, ratBound(0), ratBound(math.MaxUint8)
	default:
		return nil, errors.Newf("unsupported built-in type xs:%s", name)
	}
	return t, nil
}

func (t *simpleType) addFacet(facet, value string) error {
	intValue := func() (*int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, errors.Newf("invalid %s value %q", facet, value)
		}
		return &n, nil
	}
	boundValue := func() (*big.Rat, error) {
		if !t.numeric() {
			return nil, errors.Newf("facet %s is only supported on numeric types", facet)
		}
		r, ok := new(big.Rat).SetString(strings.TrimSpace(value))
		if !ok {
			return nil, errors.Newf("invalid %s value %q", facet, value)
		}
		return r, nil
	}

	var err error
	switch facet {
	case "enumeration":
		t.enum = append(t.enum, value)
	case "pattern":
		re, rerr := regexp.Compile("^(?:" + value + ")$")
		if rerr != nil {
			return errors.Wrapf(rerr, "unsupported pattern %q", value)
		}
		t.patterns = append(t.patterns, re)
	case "length":
		t.length, err = intValue()
	case "minLength":
		t.minLength, err = intValue()
	case "maxLength":
		t.maxLength, err = intValue()
	case "minInclusive":
		t.minIncl, err = boundValue()
	case "maxInclusive":
		t.maxIncl, err = boundValue()
	case "minExclusive":
		t.minExcl, err = boundValue()
	case "maxExclusive":
		t.maxExcl, err = boundValue()
	case "whiteSpace":
		t.collapse = value != "preserve"
	default:
		return errors.Newf("unsupported facet xs:%s", facet)
	}
	return err
}

// check validates a lexical value. what names the value in messages,
// e.g. "element 'applicationno'".
func (t *simpleType) check(what, raw string) error {
	v := raw
	if t.collapse {
		v = strings.Join(strings.Fields(raw), " ")
	}

	num, err := t.parse(v)
	if err != nil {
		return errors.Newf("The %s has an invalid value '%s' for type %s.", what, raw, t.describe())
	}

	for _, set := range append([][]string{t.enum}, t.baseEnums...) {
		if len(set) > 0 && !contains(set, v) {
			return errors.Newf("The %s has value '%s', which is not one of the allowed values.", what, v)
		}
	}
	for _, re := range t.patterns {
		if !re.MatchString(v) {
			return errors.Newf("The %s has value '%s', which does not match the required pattern.", what, v)
		}
	}

	n := utf8.RuneCountInString(v)
	switch {
	case t.length != nil && n != *t.length:
		return errors.Newf("The %s must be exactly %d characters long.", what, *t.length)
	case t.minLength != nil && n < *t.minLength:
		return errors.Newf("The %s must be at least %d characters long.", what, *t.minLength)
	case t.maxLength != nil && n > *t.maxLength:
		return errors.Newf("The %s must be at most %d characters long.", what, *t.maxLength)
	}

	if num == nil {
		return nil
	}
	out := func() error { return errors.Newf("The %s has value '%s', which is out of range.", what, v) }
	if t.lo != nil && num.Cmp(t.lo) < 0 || t.hi != nil && num.Cmp(t.hi) > 0 {
		return out()
	}
	if t.minIncl != nil && num.Cmp(t.minIncl) < 0 || t.maxIncl != nil && num.Cmp(t.maxIncl) > 0 {
		return out()
	}
	if t.minExcl != nil && num.Cmp(t.minExcl) <= 0 || t.maxExcl != nil && num.Cmp(t.maxExcl) >= 0 {
		return out()
	}
	return nil
}

var (
	integerRE = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalRE = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
	floatRE   = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([Ee][+-]?[0-9]+)?$`)
	timeZone  = `(Z|[+-][0-9]{2}:[0-9]{2})?`
	dateRE    = regexp.MustCompile(`^-?[0-9]{4,}-[0-9]{2}-[0-9]{2}` + timeZone + `$`)
)

// parse checks the primitive lexical space and returns the numeric value
// for numeric types.
func (t *simpleType) parse(v string) (*big.Rat, error) {
	switch t.prim {
	case primBoolean:
		switch v {
		case "true", "false", "1", "0":
			return nil, nil
		}
		return nil, errors.New("invalid boolean")
	case primInteger:
		if !integerRE.MatchString(v) {
			return nil, errors.New("invalid integer")
		}
		r, _ := new(big.Rat).SetString(strings.TrimPrefix(v, "+"))
		return r, nil
	case primDecimal:
		if !decimalRE.MatchString(v) {
			return nil, errors.New("invalid decimal")
		}
		d := strings.TrimPrefix(v, "+")
		if strings.HasPrefix(d, ".") || strings.HasPrefix(d, "-.") {
			d = strings.Replace(d, ".", "0.", 1)
		}
		r, ok := new(big.Rat).SetString(d)
		if !ok {
			return nil, errors.New("invalid decimal")
		}
		return r, nil
	case primFloat:
		switch v {
		case "INF", "-INF", "NaN":
			return nil, nil
		}
		if !floatRE.MatchString(v) {
			return nil, errors.New("invalid float")
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, errors.New("invalid float")
		}
		return new(big.Rat).SetFloat64(f), nil
	case primDate:
		if !dateRE.MatchString(v) {
			return nil, errors.New("invalid date")
		}
		if _, err := time.Parse("2006-01-02", v[:10]); err != nil {
			return nil, err
		}
		return nil, nil
	case primDateTime:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
			if _, err := time.Parse(layout, v); err == nil {
				return nil, nil
			}
		}
		return nil, errors.New("invalid dateTime")
	case primTime:
		for _, layout := range []string{"15:04:05.999999999Z07:00", "15:04:05.999999999"} {
			if _, err := time.Parse(layout, v); err == nil {
				return nil, nil
			}
		}
		return nil, errors.New("invalid time")
	}
	return nil, nil
}

func (t *simpleType) describe() string {
	if t.name != "" {
		return "'" + t.name + "'"
	}
	return t.builtin
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
