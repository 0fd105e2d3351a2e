package services

const nameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// PositionToName encodes position in base 52 over [a-z][A-Z], least significant digit first.
// 0 is "a", 51 is "Z", 52 is "ab", 53 is "bb".
func PositionToName(position uint) string {
	radix := uint(len(nameAlphabet))
	var name []byte
	for {
		name = append(name, nameAlphabet[position%radix])
		position /= radix
		if position == 0 {
			break
		}
	}
	return string(name)
}
