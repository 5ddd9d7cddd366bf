package tone

// DTMF keypad frequency pairs (row Hz, column Hz).
var dtmfPairs = map[rune][2]float64{
	'1': {697, 1209}, '2': {697, 1336}, '3': {697, 1477},
	'4': {770, 1209}, '5': {770, 1336}, '6': {770, 1477},
	'7': {852, 1209}, '8': {852, 1336}, '9': {852, 1477},
	'*': {941, 1209}, '0': {941, 1336}, '#': {941, 1477},
}

// DTMF returns the tone pair for a keypad rune. ok is false for keys that
// have no DTMF assignment.
func DTMF(key rune) (pair [2]float64, ok bool) {
	pair, ok = dtmfPairs[key]
	return pair, ok
}
