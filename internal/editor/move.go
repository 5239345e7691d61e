package editor

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction is an arrow-key move direction.
type Direction string

const (
	Up    Direction = "Up"
	Down  Direction = "Down"
	Left  Direction = "Left"
	Right Direction = "Right"
)

// Directions lists every valid Direction.
var Directions = []Direction{Up, Down, Left, Right}

// ParseDirection accepts a direction name in any letter case.
func ParseDirection(s string) (Direction, error) {
	for _, d := range Directions {
		if strings.EqualFold(s, string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidDirection)
}

// Move translates the selected component by amount pixels. It goes through
// the regular property-modify path, so a held arrow key coalesces into one
// record.
func (e *Engine) Move(dir Direction, amount int) error {
	return e.mutate(OpModify, func() error {
		if e.current == "" {
			return ErrNoSelection
		}
		c, ok := e.store.Find(e.current)
		if !ok {
			return ErrComponentNotFound
		}

		var key string
		var delta int
		switch dir {
		case Up:
			key, delta = "top", -amount
		case Down:
			key, delta = "top", amount
		case Left:
			key, delta = "left", -amount
		case Right:
			key, delta = "left", amount
		default:
			return fmt.Errorf("%q: %w", dir, ErrInvalidDirection)
		}

		offset := leadingInt(c.Props[key]) + delta
		return e.updateLocked(e.current, Prop(key, strconv.Itoa(offset)+"px"))
	})
}

// leadingInt reads the integer prefix of a CSS length such as "12px" or
// "-3.5px". Values without one count as zero.
func leadingInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		s := strings.TrimSpace(t)
		end := 0
		for end < len(s) {
			ch := s[end]
			if ch >= '0' && ch <= '9' || end == 0 && (ch == '-' || ch == '+') {
				end++
				continue
			}
			break
		}
		n, err := strconv.Atoi(s[:end])
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
