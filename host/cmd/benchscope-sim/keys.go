package main

import "benchscope/joystick"

type action uint8

const (
	actPress action = iota
	actHeat
	actCool
	actQuit
)

type key struct {
	act action
	pos joystick.Position
}

// parseKeys decodes raw terminal input. Arrow keys and WASD move the
// joystick, + and - change the board temperature, q or Ctrl-C quits.
// Unknown bytes are ignored.
func parseKeys(buf []byte) []key {
	var keys []key
	for i := 0; i < len(buf); i++ {
		switch c := buf[i]; c {
		case 0x1b:
			if i+2 < len(buf) && buf[i+1] == '[' {
				if pos, ok := arrows[buf[i+2]]; ok {
					keys = append(keys, key{act: actPress, pos: pos})
				}
				i += 2
			}
		case 'w', 'W':
			keys = append(keys, key{act: actPress, pos: joystick.Up})
		case 's', 'S':
			keys = append(keys, key{act: actPress, pos: joystick.Down})
		case 'a', 'A':
			keys = append(keys, key{act: actPress, pos: joystick.Left})
		case 'd', 'D':
			keys = append(keys, key{act: actPress, pos: joystick.Right})
		case '+', '=':
			keys = append(keys, key{act: actHeat})
		case '-', '_':
			keys = append(keys, key{act: actCool})
		case 'q', 'Q', 0x03:
			keys = append(keys, key{act: actQuit})
		}
	}
	return keys
}

var arrows = map[byte]joystick.Position{
	'A': joystick.Up,
	'B': joystick.Down,
	'C': joystick.Right,
	'D': joystick.Left,
}
