// Package port resolves symbolic port strings like "D-3", "A-0" and
// "PWM-1" into typed hardware channel addresses.
package port

import (
	"strconv"
	"strings"
)

// Type is the class of a hardware port.
type Type int

// Port types.
const (
	TypeUnknown Type = iota
	TypeDigital
	TypeAnalog
	TypePWM
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case TypeDigital:
		return "DIGITAL"
	case TypeAnalog:
		return "ANALOG"
	case TypePWM:
		return "PWM"
	}
	return "UNKNOWN"
}

// Address is the resolved form of a port string. It is one of
// Digital, Analog, PWM or Unknown.
type Address interface {
	Type() Type
	String() string
}

// Digital addresses a digital channel.
type Digital struct {
	Channel int
}

// Analog addresses an analog input channel.
type Analog struct {
	Channel int
}

// PWM addresses a PWM output channel.
type PWM struct {
	Channel int
}

// Unknown is what an unrecognized or malformed port string resolves to.
type Unknown struct {
	Port string
}

// Prefixes of port strings.
const (
	PrefixDigital = "D-"
	PrefixAnalog  = "A-"
	PrefixPWM     = "PWM-"
)

// Type implements Address.
func (a Digital) Type() Type { return TypeDigital }

// Type implements Address.
func (a Analog) Type() Type { return TypeAnalog }

// Type implements Address.
func (a PWM) Type() Type { return TypePWM }

// Type implements Address.
func (a Unknown) Type() Type { return TypeUnknown }

func (a Digital) String() string { return PrefixDigital + strconv.Itoa(a.Channel) }
func (a Analog) String() string  { return PrefixAnalog + strconv.Itoa(a.Channel) }
func (a PWM) String() string     { return PrefixPWM + strconv.Itoa(a.Channel) }
func (a Unknown) String() string { return a.Port }

// resolvers are checked in order, the first matching prefix wins.
var resolvers = []struct {
	prefix string
	addr   func(int) Address
}{
	{PrefixDigital, func(ch int) Address { return Digital{Channel: ch} }},
	{PrefixAnalog, func(ch int) Address { return Analog{Channel: ch} }},
	{PrefixPWM, func(ch int) Address { return PWM{Channel: ch} }},
}

// Resolve maps a port string to its Address. It never fails: anything
// not matching "D-<N>", "A-<N>" or "PWM-<N>" with N a non-negative
// decimal integer resolves to Unknown.
func Resolve(s string) Address {
	for _, r := range resolvers {
		if !strings.HasPrefix(s, r.prefix) {
			continue
		}
		if ch, ok := parseChannel(s[len(r.prefix):]); ok {
			return r.addr(ch)
		}
		break
	}
	return Unknown{Port: s}
}

// parseChannel accepts digits only, strconv alone would allow a sign.
func parseChannel(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	ch, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return ch, true
}

// ResolveAll resolves a list of port strings.
func ResolveAll(ports []string) []Address {
	addrs := make([]Address, len(ports))
	for n, p := range ports {
		addrs[n] = Resolve(p)
	}
	return addrs
}

// ChannelOf returns the channel of addr, ok is false for Unknown.
func ChannelOf(addr Address) (int, bool) {
	switch a := addr.(type) {
	case Digital:
		return a.Channel, true
	case Analog:
		return a.Channel, true
	case PWM:
		return a.Channel, true
	}
	return 0, false
}

// Less orders addresses by type then channel.
func Less(a, b Address) bool {
	if a.Type() != b.Type() {
		return a.Type() < b.Type()
	}
	chA, okA := ChannelOf(a)
	chB, okB := ChannelOf(b)
	if okA && okB {
		return chA < chB
	}
	return a.String() < b.String()
}
