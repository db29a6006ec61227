package main

import "strconv"

// terminatorCode is the Linux keycode of the Enter key.  Scanners send it
// after the last character of every code.
const terminatorCode uint16 = 28

// scancodes maps Linux input keycodes to the characters a US-layout
// keyboard-wedge scanner produces.  Code 0 is reserved by the kernel and
// deliberately has no character.
var scancodes = map[uint16]string{
    0: "", 1: "ESC", 2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9",
    11: "0", 12: "-", 13: "=", 14: "BKSP", 15: "TAB", 16: "Q", 17: "W", 18: "E", 19: "R", 20: "T",
    21: "Y", 22: "U", 23: "I", 24: "O", 25: "P", 26: "[", 27: "]", 28: "CRLF", 29: "LCTRL", 30: "A",
    31: "S", 32: "D", 33: "F", 34: "G", 35: "H", 36: "J", 37: "K", 38: "L", 39: ";", 40: `"`,
    41: "`", 42: "LSHFT", 43: `\`, 44: "Z", 45: "X", 46: "C", 47: "V", 48: "B", 49: "N", 50: "M",
    51: ",", 52: ".", 53: "/", 54: "RSHFT", 56: "LALT", 100: "RALT",
}

// lookupScancode returns the token for code.  It never fails: codes without
// a character come back as "UNKNOWN:[code]" so a badge containing them
// still completes at the terminator and simply fails to match.
func lookupScancode(code uint16) string {
    if tok, ok := scancodes[code]; ok && tok != "" {
        return tok
    }
    return "UNKNOWN:[" + strconv.Itoa(int(code)) + "]"
}
