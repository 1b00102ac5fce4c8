package i2clog

import "strings"

// Direction of an I2C transfer as seen by the bus master.
type Direction uint8

const (
	Write Direction = iota
	Read
)

func (d Direction) String() string {
	if d == Read {
		return "Read"
	}
	return "Write"
}

// EventKind classifies a line of the event log.
type EventKind uint8

const (
	// EventNone is a line that carries no bus event.
	EventNone EventKind = iota
	// EventStart begins a new transaction ("Write" or "Read").
	EventStart
	// EventAddress carries the slave address of the transaction.
	EventAddress
	// EventData carries one data byte.
	EventData
)

func (k EventKind) String() (s string) {
	switch k {
	case EventNone:
		s = "none"
	case EventStart:
		s = "start"
	case EventAddress:
		s = "address"
	case EventData:
		s = "data"
	default:
		s = "unknown"
	}
	return s
}

// Event is one classified line of a sigrok I2C annotation log, as produced by
//
//	sigrok-cli -P i2c:scl=1:sda=0:address_format=shifted -i capture.sr \
//		-A i2c=address-read:address-write:data-read:data-write
type Event struct {
	Kind EventKind
	Dir  Direction
	// Text following ": " for address and data events, passed through unparsed.
	Value string
}

var fieldPrefixes = [...]struct {
	prefix string
	kind   EventKind
	dir    Direction
}{
	{"Address write: ", EventAddress, Write},
	{"Address read: ", EventAddress, Read},
	{"Data write: ", EventData, Write},
	{"Data read: ", EventData, Read},
}

// ParseEvent classifies line. It returns false for lines that are not bus
// events. Markers match by prefix, so "Write" and "Write (repeated start)"
// both start a write transaction.
func ParseEvent(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case strings.HasPrefix(line, "Write"):
		return Event{Kind: EventStart, Dir: Write}, true
	case strings.HasPrefix(line, "Read"):
		return Event{Kind: EventStart, Dir: Read}, true
	}
	for _, fp := range fieldPrefixes {
		rest, ok := strings.CutPrefix(line, fp.prefix)
		if !ok {
			continue
		}
		// The value ends at a further ": " separator, if any.
		value, _, _ := strings.Cut(rest, ": ")
		return Event{Kind: fp.kind, Dir: fp.dir, Value: strings.TrimSpace(value)}, true
	}
	return Event{}, false
}
